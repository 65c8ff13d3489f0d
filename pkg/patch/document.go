package patch

import (
	"encoding/json"
	"fmt"

	"github.com/soundpatch/patchc/pkg/errors"
)

// CurrentVersion is the document schema version written by this build.
// Version exists purely for forward-compatible schema evolution; readers
// accept any version up to and including it.
const CurrentVersion = 1

// Document is the versioned serialization envelope around a patch. It is the
// unit of persistence and of API payloads.
type Document struct {
	Version int   `json:"version" bson:"version"`
	Patch   Patch `json:"patch" bson:"patch"`
}

// NewDocument wraps a patch in a current-version envelope. The patch is
// deep-copied so later edits to the input can never leak into the document.
func NewDocument(p Patch) Document {
	return Document{Version: CurrentVersion, Patch: p.Clone()}
}

// Normalize accepts either a full [Document] or a bare [Patch] and returns a
// defensive current-version Document copy. A bare patch is treated as
// version 1. Anything else is a hard INVALID_DOCUMENT error: malformed
// payloads are programmer errors, never silently recovered.
func Normalize(v any) (Document, error) {
	switch d := v.(type) {
	case Document:
		return Document{Version: versionOr(d.Version), Patch: d.Patch.Clone()}, nil
	case *Document:
		if d == nil {
			return Document{}, errors.New(errors.ErrCodeInvalidDocument, "document is nil")
		}
		return Document{Version: versionOr(d.Version), Patch: d.Patch.Clone()}, nil
	case Patch:
		return NewDocument(d), nil
	case *Patch:
		if d == nil {
			return Document{}, errors.New(errors.ErrCodeInvalidDocument, "patch is nil")
		}
		return NewDocument(*d), nil
	case nil:
		return Document{}, errors.New(errors.ErrCodeInvalidDocument, "document is nil")
	default:
		return Document{}, errors.New(errors.ErrCodeInvalidDocument, "unsupported payload type %T", v)
	}
}

func versionOr(v int) int {
	if v == 0 {
		return CurrentVersion
	}
	return v
}

// DecodeDocument parses JSON that is either a document envelope
// ({"version":1,"patch":{...}}) or a bare patch ({"nodes":[...],...}).
// Bare patches are normalized to a version-1 envelope.
//
// The payload must be a JSON object; null, scalars, and envelopes without a
// "patch" field fail with a descriptive INVALID_DOCUMENT error.
func DecodeDocument(data []byte) (Document, error) {
	return DecodeDocumentWith(data, Settings{})
}

// DecodeDocumentWith decodes like [DecodeDocument], but settings the
// document omits are filled from defaults before the built-in constants.
// The document's own settings always win; zero fields in defaults fall
// back to the built-ins.
func DecodeDocumentWith(data []byte, defaults Settings) (Document, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return Document{}, errors.Wrap(errors.ErrCodeInvalidDocument, err, "payload is not a JSON object")
	}
	if probe == nil {
		return Document{}, errors.New(errors.ErrCodeInvalidDocument, "payload is null")
	}

	_, versioned := probe["version"]
	_, wrapped := probe["patch"]
	if versioned || wrapped {
		raw, ok := probe["patch"]
		if !ok {
			return Document{}, errors.New(errors.ErrCodeInvalidDocument, "document has no %q field", "patch")
		}
		var doc Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return Document{}, errors.Wrap(errors.ErrCodeInvalidDocument, err, "decode document")
		}
		if string(raw) == "null" {
			return Document{}, errors.New(errors.ErrCodeInvalidDocument, "document %q field is null", "patch")
		}
		doc.Version = versionOr(doc.Version)
		doc.applyDefaults(defaults)
		return doc, nil
	}

	// Bare patch, treated as version 1.
	var p Patch
	if err := json.Unmarshal(data, &p); err != nil {
		return Document{}, errors.Wrap(errors.ErrCodeInvalidDocument, err, "decode patch")
	}
	doc := Document{Version: CurrentVersion, Patch: p}
	doc.applyDefaults(defaults)
	return doc, nil
}

// EncodeDocument serializes a document as indented JSON.
func EncodeDocument(doc Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return append(data, '\n'), nil
}

// applyDefaults fills unset engine settings after decoding, so documents
// written by hand can omit them. Caller-supplied defaults take precedence
// over the built-in constants.
func (d *Document) applyDefaults(defaults Settings) {
	if defaults.SampleRate == 0 {
		defaults.SampleRate = DefaultSampleRate
	}
	if defaults.BlockSize == 0 {
		defaults.BlockSize = DefaultBlockSize
	}
	if defaults.Oversample == 0 {
		defaults.Oversample = DefaultOversample
	}

	s := &d.Patch.Settings
	if s.SampleRate == 0 {
		s.SampleRate = defaults.SampleRate
	}
	if s.BlockSize == 0 {
		s.BlockSize = defaults.BlockSize
	}
	if s.Oversample == 0 {
		s.Oversample = defaults.Oversample
	}
}
