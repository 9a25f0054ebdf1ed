package jobs

import (
	"embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// Spec is one entry of the embedded job schedule.
type Spec struct {
	Name        string
	Hour        int
	Minute      int
	LeaseTTL    time.Duration
	Description string
}

type scheduleFile struct {
	Jobs []struct {
		Name        string `yaml:"name"`
		At          string `yaml:"at"`
		LeaseTTL    string `yaml:"lease_ttl"`
		Description string `yaml:"description"`
	} `yaml:"jobs"`
}

// LoadSchedule reads the embedded schedule.
func LoadSchedule() ([]Spec, error) {
	data, err := configFiles.ReadFile("config/schedule.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read schedule: %w", err)
	}
	return parseSchedule(data)
}

func parseSchedule(data []byte) ([]Spec, error) {
	var file scheduleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schedule: %w", err)
	}

	seen := make(map[string]bool, len(file.Jobs))
	specs := make([]Spec, 0, len(file.Jobs))
	for _, j := range file.Jobs {
		if j.Name == "" {
			return nil, fmt.Errorf("schedule entry without a name")
		}
		if seen[j.Name] {
			return nil, fmt.Errorf("job %s scheduled twice", j.Name)
		}
		seen[j.Name] = true

		at, err := time.Parse("15:04", j.At)
		if err != nil {
			return nil, fmt.Errorf("job %s: invalid time %q: %w", j.Name, j.At, err)
		}
		ttl, err := time.ParseDuration(j.LeaseTTL)
		if err != nil || ttl <= 0 {
			return nil, fmt.Errorf("job %s: invalid lease_ttl %q", j.Name, j.LeaseTTL)
		}

		specs = append(specs, Spec{
			Name:        j.Name,
			Hour:        at.Hour(),
			Minute:      at.Minute(),
			LeaseTTL:    ttl,
			Description: j.Description,
		})
	}
	return specs, nil
}

// Next returns the first run time of s strictly after now, in UTC.
func (s Spec) Next(now time.Time) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.Hour, s.Minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
