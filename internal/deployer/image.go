package deployer

import (
	"errors"
	"fmt"

	"github.com/distribution/reference"
)

// ImageRef is an image reference split into its repository and the tag or
// digest that selects a version of it.
type ImageRef struct {
	Name   string
	Tag    string
	Digest string
}

// ParseImageRef parses image, which may carry its own tag or digest. Those
// take priority over defaultTag, which in turn falls back to "latest".
func ParseImageRef(image, defaultTag string) (ImageRef, error) {
	ref, err := reference.Parse(image)
	if err != nil {
		return ImageRef{}, fmt.Errorf("invalid image reference %q: %w", image, err)
	}
	named, ok := ref.(reference.Named)
	if !ok {
		return ImageRef{}, fmt.Errorf("invalid image reference %q: %w", image, errors.New("missing repository name"))
	}

	r := ImageRef{Name: named.Name()}
	if t, ok := ref.(reference.Tagged); ok {
		r.Tag = t.Tag()
	}
	if d, ok := ref.(reference.Digested); ok {
		r.Digest = d.Digest().String()
		// A digest pins the content; a tag next to it is ignored by the engine.
		r.Tag = ""
	}
	if r.Tag == "" && r.Digest == "" {
		r.Tag = defaultTag
		if r.Tag == "" {
			r.Tag = "latest"
		}
	}
	return r, nil
}

// String returns the reference as the engine expects it, name:tag or
// name@digest.
func (r ImageRef) String() string {
	if r.Digest != "" {
		return r.Name + "@" + r.Digest
	}
	return r.Name + ":" + r.Tag
}

// PullArgs returns the image and tag arguments for Deployer.PullImage.
func (r ImageRef) PullArgs() (image, tag string) {
	if r.Digest != "" {
		return r.String(), ""
	}
	return r.Name, r.Tag
}
