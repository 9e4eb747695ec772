package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bilgisen/newswatch/internal/models"
)

func TestParserMapTimeLayouts(t *testing.T) {
	want := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		name  string
		value string
	}{
		{"rfc3339", "2024-05-01T10:30:00Z"},
		{"rfc3339 offset", "2024-05-01T13:30:00+03:00"},
		{"rfc3339 nano", "2024-05-01T10:30:00.000000000Z"},
		{"local iso", "2024-05-01T10:30:00"},
		{"sql", "2024-05-01 10:30:00"},
	}

	p := NewParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := p.Map(models.NewsDTO{Time: tt.value, Text: "x"})
			require.NoError(t, err)
			require.True(t, item.Time.Equal(want), "got %s", item.Time)
			require.Equal(t, time.UTC, item.Time.Location())
		})
	}
}

func TestParserMapEmptyTimeUsesNow(t *testing.T) {
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	p := NewParser()
	p.now = func() time.Time { return now }

	item, err := p.Map(models.NewsDTO{Text: "x"})
	require.NoError(t, err)
	require.Equal(t, now, item.Time)
}

func TestParserMapKeepsTextVerbatim(t *testing.T) {
	p := NewParser()
	item, err := p.Map(models.NewsDTO{Text: "  Breaking:  rates <b>up</b> ", Keywords: " rates   economy "})
	require.NoError(t, err)
	require.Equal(t, "  Breaking:  rates <b>up</b> ", item.Text)
	require.Equal(t, "rates economy", item.Keywords)
	require.Nil(t, item.IsSent)
	require.Zero(t, item.ID)
}

func TestParserMapRejectsInvalid(t *testing.T) {
	p := NewParser()

	_, err := p.Map(models.NewsDTO{Text: ""})
	require.Error(t, err)
	_, err = p.Map(models.NewsDTO{Text: " \t\n"})
	require.Error(t, err)
	_, err = p.Map(models.NewsDTO{Text: "x", Time: "01/05/2024"})
	require.Error(t, err)
}

func TestParserMapAll(t *testing.T) {
	p := NewParser()
	items, errs := p.MapAll([]models.NewsDTO{dto("A"), {Text: ""}, dto("B")})
	require.Len(t, items, 2)
	require.Len(t, errs, 1)
	require.Equal(t, "A", items[0].Text)
	require.Equal(t, "B", items[1].Text)
}
