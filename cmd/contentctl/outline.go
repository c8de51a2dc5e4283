package main

import (
	"bytes"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"content-factory-ai/internal/application/project"
	"content-factory-ai/internal/domain/entity"
)

// parseOutline 解析大纲 YAML，未知字段视为错误
func parseOutline(data []byte) (project.CreateInput, error) {
	var in project.CreateInput
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&in); err != nil {
		return project.CreateInput{}, fmt.Errorf("parsing outline: %w", err)
	}
	return in, nil
}

// createInputFrom 先读 --outline 文件，再用显式设置的标志覆盖
func createInputFrom(cmd *cli.Command) (project.CreateInput, error) {
	var in project.CreateInput
	if path := cmd.String("outline"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return in, fmt.Errorf("reading outline: %w", err)
		}
		if in, err = parseOutline(data); err != nil {
			return in, err
		}
	}

	if cmd.IsSet("title") {
		in.Title = cmd.String("title")
	}
	if cmd.IsSet("description") {
		in.Description = cmd.String("description")
	}
	if cmd.IsSet("type") {
		in.Type = entity.ContentType(cmd.String("type"))
	}
	if cmd.IsSet("pages") {
		in.TargetPages = int(cmd.Int("pages"))
	}
	if cmd.IsSet("chapters") {
		in.ChapterCount = int(cmd.Int("chapters"))
	}
	for _, title := range cmd.StringSlice("chapter") {
		in.Outline = append(in.Outline, project.OutlineInput{Title: title})
	}
	roleModels(cmd, &in.AgentConfig)

	if in.Title == "" {
		return in, fmt.Errorf("a title is required (--title or outline file)")
	}
	return in, nil
}
