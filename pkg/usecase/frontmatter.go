package usecase

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/adrg/frontmatter"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tidepool/pkg/domain/model"
)

var promoKeyPattern = regexp.MustCompile(`^promo_(\d+)_(image|text)$`)

// parseFrontMatter splits source into its front matter and markdown body.
// Pages without a front matter block return a nil FrontMatter.
func parseFrontMatter(source []byte) (*model.FrontMatter, []byte, error) {
	raw := map[string]any{}
	body, err := frontmatter.Parse(bytes.NewReader(source), &raw)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to parse front matter")
	}
	if len(raw) == 0 {
		return nil, body, nil
	}

	normalized := make(map[string]any, len(raw))
	for key, value := range raw {
		normalized[key] = normalizeValue(value)
	}

	return &model.FrontMatter{
		Title:       stringValue(normalized["title"]),
		Description: stringValue(normalized["description"]),
		Promotions:  collectPromotions(normalized),
		Raw:         normalized,
	}, body, nil
}

// collectPromotions gathers promo_N_image / promo_N_text pairs ordered by N.
// Pairs with neither an image nor a text are dropped.
func collectPromotions(raw map[string]any) []*model.Promotion {
	byIndex := map[int]*model.Promotion{}
	for key, value := range raw {
		m := promoKeyPattern.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		promo, ok := byIndex[idx]
		if !ok {
			promo = &model.Promotion{}
			byIndex[idx] = promo
		}
		switch m[2] {
		case "image":
			promo.Image = stringValue(value)
		case "text":
			promo.Text = stringValue(value)
		}
	}

	indexes := make([]int, 0, len(byIndex))
	for idx, promo := range byIndex {
		if promo.Image == "" && promo.Text == "" {
			continue
		}
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	var promotions []*model.Promotion
	for _, idx := range indexes {
		promotions = append(promotions, byIndex[idx])
	}
	return promotions
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

// normalizeValue converts YAML maps with non-string keys into map[string]any
// so the front matter can be encoded as JSON.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for key, value := range x {
			m[fmt.Sprint(key)] = normalizeValue(value)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(x))
		for key, value := range x {
			m[key] = normalizeValue(value)
		}
		return m
	case []any:
		s := make([]any, len(x))
		for i, value := range x {
			s[i] = normalizeValue(value)
		}
		return s
	default:
		return v
	}
}
