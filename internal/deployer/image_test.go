package deployer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseImageRef(t *testing.T) {
	digest := "sha256:" + strings.Repeat("c", 64)
	tests := []struct {
		image      string
		defaultTag string
		want       ImageRef
		wantString string
		pullImage  string
		pullTag    string
	}{
		{"hello-world", "", ImageRef{Name: "hello-world", Tag: "latest"}, "hello-world:latest", "hello-world", "latest"},
		{"hello-world", "v2", ImageRef{Name: "hello-world", Tag: "v2"}, "hello-world:v2", "hello-world", "v2"},
		{"app:v1", "latest", ImageRef{Name: "app", Tag: "v1"}, "app:v1", "app", "v1"},
		{"localhost:5000/app", "", ImageRef{Name: "localhost:5000/app", Tag: "latest"}, "localhost:5000/app:latest", "localhost:5000/app", "latest"},
		{"ghcr.io/acme/app@" + digest, "latest", ImageRef{Name: "ghcr.io/acme/app", Digest: digest}, "ghcr.io/acme/app@" + digest, "ghcr.io/acme/app@" + digest, ""},
		{"app:v1@" + digest, "", ImageRef{Name: "app", Digest: digest}, "app@" + digest, "app@" + digest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.image, func(t *testing.T) {
			ref, err := ParseImageRef(tt.image, tt.defaultTag)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ref)
			assert.Equal(t, tt.wantString, ref.String())

			img, tag := ref.PullArgs()
			assert.Equal(t, tt.pullImage, img)
			assert.Equal(t, tt.pullTag, tag)
		})
	}
}

func TestParseImageRef_Invalid(t *testing.T) {
	for _, image := range []string{"", "App", "app:", "app v1"} {
		_, err := ParseImageRef(image, "latest")
		assert.Error(t, err, image)
	}
}
