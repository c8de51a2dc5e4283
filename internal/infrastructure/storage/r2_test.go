package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	b, _ := io.ReadAll(in.Body)
	f.body = string(b)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestUploadReturnsPublicURL(t *testing.T) {
	put := &fakePutter{}
	c := NewR2ClientWith(put, "books", "https://cdn.example.com/")

	url, err := c.Upload(context.Background(), "exports/p1/livro.md", strings.NewReader("# Livro"), "text/markdown")
	if err != nil {
		t.Fatal(err)
	}
	if url != "https://cdn.example.com/exports/p1/livro.md" {
		t.Fatalf("url = %s", url)
	}
	if aws.ToString(put.input.Bucket) != "books" || aws.ToString(put.input.ContentType) != "text/markdown" {
		t.Fatalf("input = %+v", put.input)
	}
	if put.body != "# Livro" {
		t.Fatalf("body = %q", put.body)
	}
}

func TestUploadWithoutCDN(t *testing.T) {
	c := NewR2ClientWith(&fakePutter{}, "books", "")
	if got := c.PublicURL("a.md"); got != "https://books.r2.cloudflarestorage.com/a.md" {
		t.Fatalf("url = %s", got)
	}
}

func TestUploadError(t *testing.T) {
	c := NewR2ClientWith(&fakePutter{err: errors.New("denied")}, "books", "")
	if _, err := c.Upload(context.Background(), "k", strings.NewReader("x"), "text/plain"); err == nil {
		t.Fatal("expected error")
	}
}
