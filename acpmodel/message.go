// Package acpmodel defines the wire-level data model shared by every ACP
// component: messages and their parts, artifacts, runs, and the events a
// run emits while it executes.
package acpmodel

import "errors"

type (
	// ContentEncoding identifies how MessagePart.Content is encoded.
	ContentEncoding string

	// MessagePart is one segment of a Message. Exactly one of Content or
	// ContentURL must be set; Name is required when the part represents an
	// Artifact.
	MessagePart struct {
		// Name identifies the part, required for artifacts, optional otherwise.
		Name string `json:"name,omitempty"`
		// ContentType is the MIME type of the part's content.
		ContentType string `json:"content_type"`
		// ContentEncoding is "plain" (default) or "base64".
		ContentEncoding ContentEncoding `json:"content_encoding,omitempty"`
		// Content is the inline payload. Mutually exclusive with ContentURL.
		Content string `json:"content,omitempty"`
		// ContentURL references an out-of-band payload. Mutually exclusive
		// with Content.
		ContentURL string `json:"content_url,omitempty"`
		// Metadata carries arbitrary extension data attached to the part.
		Metadata map[string]any `json:"metadata,omitempty"`
	}

	// Message is an ordered sequence of parts, optionally stamped with a
	// role (see the role-assignment policy in executor).
	Message struct {
		// Role identifies the producer of the message (e.g. "user",
		// "agent/echo"). Optional on input; stamped by the server on output
		// when the agent didn't set one.
		Role  string        `json:"role,omitempty"`
		Parts []MessagePart `json:"parts"`
	}
)

const (
	// EncodingPlain is the default content encoding.
	EncodingPlain ContentEncoding = "plain"
	// EncodingBase64 marks Content as base64-encoded bytes.
	EncodingBase64 ContentEncoding = "base64"

	// ContentTypeText is the MIME type implicit strings/parts are tagged with.
	ContentTypeText = "text/plain"
)

// ErrInvalidPart is returned by Validate when a part violates the
// content/content_url XOR invariant. A missing content_type is reported by
// a different error.
var ErrInvalidPart = errors.New("acpmodel: message part must have exactly one of content or content_url")

// Validate checks the part's content/content_url XOR invariant and that
// its ContentType is set.
func (p MessagePart) Validate() error {
	hasContent := p.Content != ""
	hasURL := p.ContentURL != ""
	if hasContent == hasURL {
		return ErrInvalidPart
	}
	if p.ContentType == "" {
		return errors.New("acpmodel: message part requires content_type")
	}
	return nil
}

// IsArtifact reports whether the part carries a Name, making it an Artifact
// per the data model (an Artifact is a MessagePart with Name required).
func (p MessagePart) IsArtifact() bool {
	return p.Name != ""
}

// TextPart builds a plain text/plain, plain-encoded inline part, the shape
// implied when an agent yields a raw string (spec.md §4.1).
func TextPart(content string) MessagePart {
	return MessagePart{
		ContentType:     ContentTypeText,
		ContentEncoding: EncodingPlain,
		Content:         content,
	}
}

// Append concatenates src's parts onto m and returns the combined message.
// The receiver's Role is preserved.
func (m Message) Append(src Message) Message {
	out := m
	out.Parts = append(append([]MessagePart{}, m.Parts...), src.Parts...)
	return out
}

// Compress fuses adjacent parts when both have no Name, are text/plain,
// plain-encoded, and neither has a ContentURL. The operation is idempotent:
// running it again on its own output yields the same result, and the
// concatenation of compressed parts' Content equals the concatenation of the
// originals'.
func (m Message) Compress() Message {
	if len(m.Parts) < 2 {
		return m
	}
	out := Message{Role: m.Role, Parts: make([]MessagePart, 0, len(m.Parts))}
	for _, part := range m.Parts {
		if n := len(out.Parts); n > 0 && fusable(out.Parts[n-1], part) {
			out.Parts[n-1].Content += part.Content
			continue
		}
		out.Parts = append(out.Parts, part)
	}
	return out
}

func fusable(a, b MessagePart) bool {
	plain := func(p MessagePart) bool {
		return p.Name == "" &&
			p.ContentType == ContentTypeText &&
			(p.ContentEncoding == "" || p.ContentEncoding == EncodingPlain) &&
			p.ContentURL == ""
	}
	return plain(a) && plain(b)
}
