package views

import (
	"strings"
	"unicode"

	"github.com/matheus3301/gcsearch/internal/backend"
)

// invisible holds code points that chat exports and OCR transcriptions carry
// but a terminal cannot draw at a stable width: emoji skin tone modifiers,
// joiners and variation selectors, bidi marks (WhatsApp prefixes its media
// placeholders with U+200E), BOMs, soft hyphens and U+FFFD left by OCR.
var invisible = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x00ad, Hi: 0x00ad, Stride: 1},
		{Lo: 0x200b, Hi: 0x200f, Stride: 1},
		{Lo: 0x202a, Hi: 0x202e, Stride: 1},
		{Lo: 0x2066, Hi: 0x2069, Stride: 1},
		{Lo: 0xfe00, Hi: 0xfe0f, Stride: 1},
		{Lo: 0xfeff, Hi: 0xfeff, Stride: 1},
		{Lo: 0xfffd, Hi: 0xfffd, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x1f3fb, Hi: 0x1f3ff, Stride: 1},
		{Lo: 0xe0100, Hi: 0xe01ef, Stride: 1},
	},
	LatinOffset: 1,
}

// mediaPlaceholders maps the text exporters put in the message field of a
// media message to the kind of attachment it stands for.
var mediaPlaceholders = map[string]string{
	"image omitted":    "image",
	"video omitted":    "video",
	"audio omitted":    "audio",
	"gif omitted":      "gif",
	"sticker omitted":  "sticker",
	"document omitted": "document",
	"<media omitted>":  "media",
	"[photo]":          "image",
	"[照片]":             "image",
	"[video]":          "video",
	"[影片]":             "video",
	"[file]":           "file",
	"[檔案]":             "file",
	"[sticker]":        "sticker",
	"[貼圖]":             "sticker",
	"*photo*":          "image",
	"*video*":          "video",
}

// terminalText drops control and invisible code points, keeping newlines
// and tabs.
func terminalText(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case unicode.IsControl(r), unicode.Is(invisible, r):
			return -1
		}
		return r
	}, s)
}

// tidyLines trims trailing blanks and collapses runs of empty lines, which
// OCR transcriptions of screenshots are full of.
func tidyLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	blank := true
	for _, l := range lines {
		l = strings.TrimRight(l, " \t")
		if l == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, l)
	}
	return strings.TrimRight(strings.Join(out, "\n"), "\n")
}

// mediaKind reports the attachment kind when text is only an exporter
// placeholder.
func mediaKind(text string) (string, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if strings.HasPrefix(t, "<attached:") && strings.HasSuffix(t, ">") {
		return "attachment", true
	}
	kind, ok := mediaPlaceholders[t]
	return kind, ok
}

// messageBody splits m into the text to show and the label of its
// attachment line, if any.
func messageBody(m backend.Message) (body, media string) {
	body = tidyLines(terminalText(m.Text))
	if kind, ok := mediaKind(body); ok {
		return "", kind
	}
	if m.ImageURL != "" {
		return body, "image"
	}
	return body, ""
}

// cellText renders m on one table line.
func cellText(m backend.Message) string {
	body, media := messageBody(m)
	switch {
	case body != "":
		return oneLine(body)
	case media != "":
		return "[" + media + "]"
	}
	return ""
}
