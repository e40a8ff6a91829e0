package events

import "strings"

func NormalizeListFilters(f *ListFilters) {
	if f == nil {
		return
	}

	normText(&f.Name)
	normText(&f.Description)
	normText(&f.Source)
	f.Source.StartsWith = nil
	if f.Source.Exact != nil {
		s := strings.ToLower(*f.Source.Exact)
		f.Source.Exact = &s
	}

	normTime(&f.CreatedAt)
	normTime(&f.UpdatedAt)
}

func NormalizeRequest(p *PageRequest) {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.SortBy == "" {
		p.SortBy = "created_at"
	}
	p.SortDir = strings.ToLower(p.SortDir)
	if p.SortDir != "asc" && p.SortDir != "desc" {
		p.SortDir = "desc"
	}
}

func normText(f *TextFilter) {
	f.Exact = normPtr(f.Exact, strings.TrimSpace)
	f.Contains = normPtr(f.Contains, withTrimCollapse)
	f.StartsWith = normPtr(f.StartsWith, withTrimCollapse)
}

// normTime приводит к UTC и меняет местами перепутанные границы.
func normTime(f *TimeFilter) {
	if f.Exact != nil {
		t := f.Exact.UTC()
		f.Exact = &t
	}
	if f.From != nil {
		t := f.From.UTC()
		f.From = &t
	}
	if f.To != nil {
		t := f.To.UTC()
		f.To = &t
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		f.From, f.To = f.To, f.From
	}
}

func withTrimCollapse(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(s), " ")
}

func normPtr(p *string, norm func(string) string) *string {
	if p == nil {
		return nil
	}
	v := norm(*p)
	if v == "" {
		return nil
	}
	return &v
}
