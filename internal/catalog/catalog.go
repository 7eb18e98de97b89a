package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
	"unicode"

	"enliven_backend/internal/util"
)

// Source 读取存储中的对象，对象不存在时返回包装了 fs.ErrNotExist 的错误
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// Resource 兼容 "url" 字符串与 {"title","url"} 两种写法
type Resource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

func (r *Resource) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.URL = strings.TrimSpace(s)
		return nil
	}
	type plain Resource
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Resource(p)
	return nil
}

type Step struct {
	Title     string     `json:"title"`
	Links     []string   `json:"links"`
	Resources []Resource `json:"resources"`
}

// Content 某个方向某个级别的课程目录
type Content struct {
	Domain string `json:"domain"`
	Level  string `json:"level"`
	Steps  []Step `json:"steps"`
}

// Titles 按目录顺序返回全部标题
func (c *Content) Titles() []string {
	titles := make([]string, 0, len(c.Steps))
	for _, s := range c.Steps {
		if t := strings.TrimSpace(s.Title); t != "" {
			titles = append(titles, t)
		}
	}
	return titles
}

// Step 按标题精确查找
func (c *Content) Step(title string) (Step, bool) {
	for _, s := range c.Steps {
		if strings.TrimSpace(s.Title) == title {
			return s, true
		}
	}
	return Step{}, false
}

// DomainSlug 小写、去首尾空白、连续空白替换为 "-"
func DomainSlug(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), "-")
}

// LevelSlug 小写并去掉所有非字母字符
func LevelSlug(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return r
		}
		return -1
	}, strings.ToLower(s))
}

func CourseID(domain, level string) string {
	return DomainSlug(domain) + "-" + LevelSlug(level)
}

type Catalog struct {
	source Source
	root   string
}

func New(source Source, root string) *Catalog {
	return &Catalog{source: source, root: strings.Trim(root, "/")}
}

// Path 目录文件在存储中的位置：<root>/<domainSlug>/<levelSlug>.json
func (c *Catalog) Path(domain, level string) (string, error) {
	d, l := DomainSlug(domain), LevelSlug(level)
	if d == "" || l == "" || strings.ContainsAny(d, `/\`) || strings.Contains(d, "..") {
		return "", util.ErrCatalogNotFound
	}
	return path.Join(c.root, d, l+".json"), nil
}

// Load 读取并解析课程目录，文件不存在或没有任何步骤时返回 util.ErrCatalogNotFound
func (c *Catalog) Load(ctx context.Context, domain, level string) (*Content, error) {
	name, err := c.Path(domain, level)
	if err != nil {
		return nil, err
	}
	rc, err := c.source.Open(ctx, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, util.ErrCatalogNotFound
		}
		return nil, fmt.Errorf("open catalog %s: %w", name, err)
	}
	defer rc.Close()

	var content Content
	if err := json.NewDecoder(rc).Decode(&content); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", name, err)
	}
	if len(content.Titles()) == 0 {
		return nil, util.ErrCatalogNotFound
	}
	content.Domain = DomainSlug(domain)
	content.Level = LevelSlug(level)
	return &content, nil
}
