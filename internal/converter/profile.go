package converter

import (
	"strings"

	"github.com/ginjaninja78/statement-normalizer/internal/config"
	"github.com/ginjaninja78/statement-normalizer/internal/reconcile"
)

const defaultProfile = "default"

// fileSettings are the per-file parser and reconciler settings.
type fileSettings struct {
	profileCode string
	csv         config.CSVSettings
	reconcile   reconcile.Options
}

// settingsFor merges the main configuration with the profile matching
// fileName, if any. Profile values win.
func (c *Converter) settingsFor(fileName string) fileSettings {
	settings := fileSettings{
		profileCode: defaultProfile,
		csv:         c.mainConfig.CSV,
		reconcile: reconcile.Options{
			Synonyms:        reconcile.DefaultSynonyms(),
			DefaultCurrency: c.mainConfig.Defaults.Currency,
			DefaultStatus:   c.mainConfig.Defaults.Status,
		},
	}

	profile := config.FindProfile(c.profiles, fileName)
	if profile == nil {
		return settings
	}

	settings.profileCode = profile.ProfileCode
	settings.csv = profile.CSVSettings
	if currency := strings.TrimSpace(profile.DefaultCurrency); currency != "" {
		settings.reconcile.DefaultCurrency = currency
	}
	if len(profile.ColumnSynonyms) > 0 {
		settings.reconcile.Synonyms = reconcile.NewSynonyms(profile.ColumnSynonyms)
	}
	return settings
}
