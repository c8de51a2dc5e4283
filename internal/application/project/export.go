package project

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"content-factory-ai/internal/domain/entity"
	apperrors "content-factory-ai/pkg/errors"
	"content-factory-ai/pkg/logger"
)

const (
	markdownContentType = "text/markdown; charset=utf-8"
	emptyChapterBody    = "_Content not generated yet._"
)

// ExportResult 导出的 Markdown 文档
type ExportResult struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"-"`
	// URL 发布到对象存储后的访问地址，未发布时为空
	URL string `json:"url,omitempty"`
}

// Export 将项目渲染为 Markdown；publish 为 true 且配置了对象存储时同时上传
func (s *Service) Export(ctx context.Context, userID, projectID string, publish bool) (*ExportResult, error) {
	project, err := s.owned(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	chapters, err := s.chapters.ListByProject(ctx, projectID)
	if err != nil {
		return nil, apperrors.Database(err, "failed to list chapters")
	}

	res := &ExportResult{
		Filename:    exportFilename(project.Title),
		ContentType: markdownContentType,
		Content:     RenderMarkdown(project, chapters),
	}
	if !publish {
		return res, nil
	}
	if s.publisher == nil {
		return nil, apperrors.New(apperrors.CodeServiceUnavailable, "export publishing is not configured")
	}

	key := path.Join(s.opts.ExportPrefix, projectID, res.Filename)
	url, err := s.publisher.Upload(ctx, key, bytes.NewReader(res.Content), markdownContentType)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "failed to publish export")
	}
	res.URL = url
	logger.Info(ctx, "project export published", "project_id", projectID, "key", key)
	return res, nil
}

// RenderMarkdown 标题、简介、元信息，随后按序号输出每章权威文本
func RenderMarkdown(project *entity.Project, chapters []*entity.Chapter) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", project.Title)
	if d := strings.TrimSpace(project.Description); d != "" {
		fmt.Fprintf(&b, "\n%s\n", d)
	}
	fmt.Fprintf(&b, "\nType: %s\nTarget pages: %d\n\n---\n\n", project.Type, project.TargetPages)

	for _, c := range chapters {
		fmt.Fprintf(&b, "## %d. %s\n\n", c.Order, c.Title)
		if text := strings.TrimSpace(c.AuthoritativeText()); text != "" {
			b.WriteString(text)
		} else {
			b.WriteString(emptyChapterBody)
		}
		b.WriteString("\n\n")
	}
	return []byte(b.String())
}

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaces  = regexp.MustCompile(`\s+`)
)

// Slugify 去掉变音符号后只保留小写字母、数字与连字符
func Slugify(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, strings.ToLower(title))
	if err != nil {
		plain = strings.ToLower(title)
	}
	plain = slugInvalid.ReplaceAllString(plain, "")
	return slugSpaces.ReplaceAllString(strings.TrimSpace(plain), "-")
}

func exportFilename(title string) string {
	slug := Slugify(title)
	if slug == "" {
		slug = "project"
	}
	return slug + ".md"
}
