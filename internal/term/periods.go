package term

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrUnknownPeriod indicates the requested period label is not in the table.
var ErrUnknownPeriod = errors.New("term: unknown period")

// Period is one lecture slot of the timetable.
type Period struct {
	Label string
	Start Clock
	End   Clock
}

// PeriodTable maps period labels to their time ranges.
type PeriodTable map[string]Period

// DefaultPeriods returns the standard five-period timetable.
func DefaultPeriods() PeriodTable {
	return PeriodTable{
		"1": {Label: "1", Start: Clock{8, 50}, End: Clock{10, 20}},
		"2": {Label: "2", Start: Clock{10, 30}, End: Clock{12, 0}},
		"3": {Label: "3", Start: Clock{13, 10}, End: Clock{14, 40}},
		"4": {Label: "4", Start: Clock{14, 50}, End: Clock{16, 20}},
		"5": {Label: "5", Start: Clock{16, 30}, End: Clock{18, 0}},
	}
}

// Lookup returns the period for label.
func (t PeriodTable) Lookup(label string) (Period, error) {
	p, ok := t[label]
	if !ok {
		return Period{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, label)
	}
	return p, nil
}

// Labels returns the period labels in timetable order.
func (t PeriodTable) Labels() []string {
	labels := make([]string, 0, len(t))
	for label := range t {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		a, b := t[labels[i]], t[labels[j]]
		if a.Start == b.Start {
			return labels[i] < labels[j]
		}
		return a.Start.Before(b.Start)
	})
	return labels
}

type periodFile struct {
	Periods []periodEntry `yaml:"periods"`
}

type periodEntry struct {
	Label string `yaml:"label"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// LoadPeriods reads a YAML timetable of the form
//
//	periods:
//	  - label: "1"
//	    start: "08:50"
//	    end: "10:20"
//
// An empty path returns DefaultPeriods.
func LoadPeriods(path string) (PeriodTable, error) {
	if path == "" {
		return DefaultPeriods(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read periods file: %w", err)
	}
	return ParsePeriods(raw)
}

// ParsePeriods decodes a YAML timetable document.
func ParsePeriods(raw []byte) (PeriodTable, error) {
	var doc periodFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse periods yaml: %w", err)
	}
	if len(doc.Periods) == 0 {
		return nil, errors.New("periods yaml: no periods defined")
	}

	table := make(PeriodTable, len(doc.Periods))
	for i, entry := range doc.Periods {
		if entry.Label == "" {
			return nil, fmt.Errorf("periods yaml: entry %d has no label", i)
		}
		if _, dup := table[entry.Label]; dup {
			return nil, fmt.Errorf("periods yaml: duplicate label %q", entry.Label)
		}
		start, err := ParseClock(entry.Start)
		if err != nil {
			return nil, fmt.Errorf("periods yaml: period %q start: %w", entry.Label, err)
		}
		end, err := ParseClock(entry.End)
		if err != nil {
			return nil, fmt.Errorf("periods yaml: period %q end: %w", entry.Label, err)
		}
		if !start.Before(end) {
			return nil, fmt.Errorf("periods yaml: period %q must end after it starts", entry.Label)
		}
		table[entry.Label] = Period{Label: entry.Label, Start: start, End: end}
	}
	return table, nil
}
