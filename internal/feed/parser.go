package feed

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/bilgisen/newswatch/internal/models"
)

// timestamp layouts accepted from the remote source, tried in order
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Parser maps raw remote records to news items
type Parser struct {
	validate *validator.Validate
	now      func() time.Time
}

func NewParser() *Parser {
	v := validator.New(validator.WithRequiredStructEnabled())
	// registration only fails for an empty tag or nil func
	_ = v.RegisterValidation("notblank", validators.NotBlank)

	return &Parser{
		validate: v,
		now:      time.Now,
	}
}

// Map converts one record. The text is kept verbatim since it is the item's
// identity; a record without a time is stamped with the current time.
func (p *Parser) Map(dto models.NewsDTO) (*models.NewsItem, error) {
	ts, err := p.parseTime(dto.Time)
	if err != nil {
		return nil, err
	}

	item := &models.NewsItem{
		Time:     ts,
		Keywords: strings.Join(strings.Fields(dto.Keywords), " "),
		Text:     dto.Text,
	}
	if dto.IsSent != nil {
		sent := *dto.IsSent
		item.IsSent = &sent
	}

	if err := p.validate.Struct(item); err != nil {
		return nil, fmt.Errorf("invalid news record: %w", err)
	}
	return item, nil
}

// MapAll converts every record, collecting the failures of the ones skipped
func (p *Parser) MapAll(dtos []models.NewsDTO) ([]*models.NewsItem, []error) {
	items := make([]*models.NewsItem, 0, len(dtos))
	var errs []error
	for i, dto := range dtos {
		item, err := p.Map(dto)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		items = append(items, item)
	}
	return items, errs
}

func (p *Parser) parseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return p.now().UTC(), nil
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format %q", value)
}
