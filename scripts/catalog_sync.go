// 校验课程目录并发布到当前配置的存储
//
// 目录文件按 <domain>/<level>.yaml 或 .json 组织，YAML 会转换为 JSON 后上传。
// 上传路径与线上读取一致：<catalog.root>/<domainSlug>/<levelSlug>.json
//
// 用法: go run scripts/catalog_sync.go -src data/course-content [-dry-run]

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"enliven_backend/internal/catalog"
	"enliven_backend/internal/config"
	"enliven_backend/internal/service"
	"enliven_backend/pkg/logger"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type yamlResource struct {
	Title string `yaml:"title"`
	URL   string `yaml:"url"`
}

type yamlStep struct {
	Title     string         `yaml:"title"`
	Links     []string       `yaml:"links"`
	Resources []yamlResource `yaml:"resources"`
}

type yamlContent struct {
	Domain string     `yaml:"domain"`
	Level  string     `yaml:"level"`
	Steps  []yamlStep `yaml:"steps"`
}

func (y yamlContent) toContent() catalog.Content {
	c := catalog.Content{Domain: y.Domain, Level: y.Level}
	for _, s := range y.Steps {
		step := catalog.Step{Title: s.Title, Links: s.Links}
		for _, r := range s.Resources {
			step.Resources = append(step.Resources, catalog.Resource{Title: r.Title, URL: r.URL})
		}
		c.Steps = append(c.Steps, step)
	}
	return c
}

func readContent(path string) (catalog.Content, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return catalog.Content{}, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var y yamlContent
		if err := yaml.Unmarshal(data, &y); err != nil {
			return catalog.Content{}, err
		}
		return y.toContent(), nil
	default:
		var c catalog.Content
		err := json.Unmarshal(data, &c)
		return c, err
	}
}

// validate 标题不能为空且忽略大小写后不能重名
func validate(c catalog.Content) []string {
	var problems []string
	if len(c.Steps) == 0 {
		problems = append(problems, "no steps")
	}
	seen := map[string]string{}
	for i, s := range c.Steps {
		title := strings.TrimSpace(s.Title)
		if title == "" {
			problems = append(problems, fmt.Sprintf("step %d has no title", i+1))
			continue
		}
		key := strings.ToLower(title)
		if dup, ok := seen[key]; ok {
			problems = append(problems, fmt.Sprintf("step %d %q duplicates %q", i+1, title, dup))
		}
		seen[key] = title
		if len(s.Links) == 0 {
			problems = append(problems, fmt.Sprintf("step %d %q has no video links", i+1, title))
		}
	}
	return problems
}

func main() {
	src := flag.String("src", "data/course-content", "目录源文件所在目录")
	configDir := flag.String("config", "configs", "配置文件目录")
	dryRun := flag.Bool("dry-run", false, "只校验不上传")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}
	logger.InitLogger(cfg)

	storage := service.NewStorageService(cfg)
	cat := catalog.New(storage, cfg.Catalog.Root)
	ctx := context.Background()

	failed := 0
	err = filepath.WalkDir(*src, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json", ".yaml", ".yml":
		default:
			return nil
		}

		content, err := readContent(path)
		if err != nil {
			log.Printf("[FAIL] %s: %v", path, err)
			failed++
			return nil
		}
		if problems := validate(content); len(problems) > 0 {
			for _, p := range problems {
				log.Printf("[FAIL] %s: %s", path, p)
			}
			failed++
			return nil
		}

		dst, err := cat.Path(content.Domain, content.Level)
		if err != nil {
			log.Printf("[FAIL] %s: %v", path, err)
			failed++
			return nil
		}
		if *dryRun {
			log.Printf("[OK] %s -> %s (%d steps)", path, dst, len(content.Steps))
			return nil
		}

		body, err := json.MarshalIndent(content, "", "  ")
		if err != nil {
			return err
		}
		if _, err := storage.Upload(ctx, dst, bytes.NewReader(body), int64(len(body)), "application/json"); err != nil {
			log.Printf("[FAIL] %s: upload: %v", path, err)
			failed++
			return nil
		}
		log.Printf("[OK] %s -> %s (%d steps)", path, dst, len(content.Steps))
		return nil
	})
	if err != nil {
		log.Fatalf("遍历目录失败: %v", err)
	}
	if failed > 0 {
		log.Fatalf("%d 个目录文件未通过校验", failed)
	}
	log.Println("完成！")
}
