// Package ocrengine wraps the third-party OCR recognizer behind the small
// init/recognize contract spec.md §4.1 (C1) specifies. One Adapter is
// owned by exactly one worker for its whole life; the adapter itself does
// not serialize calls, so concurrent use of a single Adapter from more
// than one goroutine is a caller bug (spec.md §4.1, "not reentrant").
package ocrengine

import (
	"fmt"
	"strconv"

	"github.com/otiai10/gosseract/v2"

	"github.com/care/ocrstream/internal/wire"
)

// Profile configures a recognition engine: language pack, page
// segmentation mode, and an optional character whitelist. It is fixed
// for the lifetime of an Adapter, including across rejuvenation (the new
// engine instance is reconfigured identically).
type Profile struct {
	// Language is a Tesseract language code, e.g. "eng". Multiple codes
	// may be joined with "+" (Tesseract's own convention) for
	// multi-language recognition.
	Language string

	// PageSegMode is Tesseract's --psm value. Zero means "use the
	// engine's default" and is not set explicitly.
	PageSegMode int

	// CharWhitelist restricts recognition to these characters. Empty
	// means no restriction.
	CharWhitelist string
}

// Adapter is one configured OCR engine instance. The zero value is not
// usable; construct with New and call Init exactly once before Recognize.
type Adapter struct {
	profile Profile
	client  *gosseract.Client
}

// New constructs an unconfigured Adapter for the given profile. Init must
// be called before the first Recognize.
func New(profile Profile) *Adapter {
	return &Adapter{profile: profile}
}

// Init configures the underlying engine. It must be called exactly once
// per Adapter before any Recognize call; calling it again (as
// rejuvenation does) first closes the previous engine instance.
func (a *Adapter) Init() error {
	if a.client != nil {
		a.client.Close()
		a.client = nil
	}

	client := gosseract.NewClient()
	if a.profile.Language != "" {
		if err := client.SetLanguage(a.profile.Language); err != nil {
			client.Close()
			return fmt.Errorf("ocrengine: set language %q: %w", a.profile.Language, err)
		}
	}
	if a.profile.PageSegMode != 0 {
		mode := strconv.Itoa(a.profile.PageSegMode)
		if err := client.SetVariable(gosseract.SettableVariable("tessedit_pageseg_mode"), mode); err != nil {
			client.Close()
			return fmt.Errorf("ocrengine: set page segmentation mode: %w", err)
		}
	}
	if a.profile.CharWhitelist != "" {
		if err := client.SetVariable(gosseract.SettableVariable("tessedit_char_whitelist"), a.profile.CharWhitelist); err != nil {
			client.Close()
			return fmt.Errorf("ocrengine: set char whitelist: %w", err)
		}
	}

	a.client = client
	return nil
}

// Recognize decodes data, runs the deterministic preprocessing pipeline,
// invokes the engine, and applies deterministic post-processing. It
// returns ("", err) with err wrapping "decode failed" when the image
// cannot be decoded; an engine error is returned as-is so callers can
// format it per spec.md §7's EngineFailure kind. A recognizer that finds
// no text returns ("", nil) — not an error — per spec.md §4.1.
func (a *Adapter) Recognize(data []byte) (string, error) {
	if a.client == nil {
		return "", fmt.Errorf("ocrengine: Recognize called before Init")
	}

	img, err := decode(data)
	if err != nil {
		return "", err
	}

	prepared, err := preprocess(img)
	if err != nil {
		return "", fmt.Errorf("ocrengine: preprocess: %w", err)
	}

	if err := a.client.SetImageFromBytes(prepared); err != nil {
		return "", fmt.Errorf("%s", wire.EngineFailureMessage(err.Error()))
	}

	raw, err := a.client.Text()
	if err != nil {
		return "", fmt.Errorf("%s", wire.EngineFailureMessage(err.Error()))
	}

	return postprocess(raw), nil
}

// Close releases the engine instance. Safe to call on an Adapter whose
// Init never succeeded.
func (a *Adapter) Close() error {
	if a.client == nil {
		return nil
	}
	err := a.client.Close()
	a.client = nil
	return err
}
