package storage

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SuyogBora/picode-server/internal/config"
)

func newTestPresigner(t *testing.T) *Presigner {
	t.Helper()
	p, err := New(context.Background(), config.StorageConfig{
		Enabled:         true,
		Bucket:          "picode-test",
		Region:          "us-east-1",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
		PresignTTL:      5 * time.Minute,
		MaxUploadBytes:  1 << 20,
		AllowedTypes:    []string{"application/pdf", "image/png"},
	})
	require.NoError(t, err)
	return p
}

func TestNewDisabled(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{})
	assert.ErrorIs(t, err, ErrDisabled)

	var p *Presigner
	_, err = p.PresignDownload(context.Background(), "misc/a")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestPresignUpload(t *testing.T) {
	p := newTestPresigner(t)
	up, err := p.PresignUpload(context.Background(), "Resumes", "CV Final.PDF", "application/pdf", 2048)
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^resumes/\d{4}/\d{2}/[0-9a-f-]{36}\.pdf$`), up.Key)
	assert.Equal(t, "PUT", up.Method)
	assert.Equal(t, "application/pdf", up.ContentType)

	u, err := url.Parse(up.URL)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/picode-test/"+up.Key, u.Path)
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
	assert.Equal(t, "300", u.Query().Get("X-Amz-Expires"))
}

func TestPresignUploadRejections(t *testing.T) {
	p := newTestPresigner(t)
	ctx := context.Background()

	_, err := p.PresignUpload(ctx, "secrets", "a.pdf", "application/pdf", 1)
	assert.ErrorIs(t, err, ErrInvalidFolder)
	_, err = p.PresignUpload(ctx, "resumes", "a.exe", "application/x-msdownload", 1)
	assert.ErrorIs(t, err, ErrUnsupportedType)
	_, err = p.PresignUpload(ctx, "resumes", "a.pdf", "application/pdf", 2<<20)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestPresignDownload(t *testing.T) {
	p := newTestPresigner(t)
	dl, err := p.PresignDownload(context.Background(), "blogs/2026/01/cover.png")
	require.NoError(t, err)
	assert.True(t, strings.Contains(dl.URL, "/picode-test/blogs/2026/01/cover.png"))

	for _, key := range []string{"", "/blogs/a", "blogs/../etc/passwd", "other/a", "blogs/", "blogs//a"} {
		_, err := p.PresignDownload(context.Background(), key)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestSafeExt(t *testing.T) {
	assert.Equal(t, ".pdf", safeExt("cv.PDF"))
	assert.Equal(t, ".docx", safeExt("letter.docx"))
	assert.Equal(t, "", safeExt("noext"))
	assert.Equal(t, "", safeExt("weird.p$f"))
	assert.Equal(t, "", safeExt("long.extension"))
}
