// =============================================================================
// Statement Normalizer - Configuration Validation
// =============================================================================
//
// Checks the main configuration, the source profiles and the category rules
// before a batch runs, so a typo in a profile fails loudly instead of
// silently falling back to defaults for every matching statement.
//
// SEVERITY:
//   - "error":   the setting cannot work (bad glob, unknown encoding, ...)
//   - "warning": the setting works but probably not as intended (a profile
//                with no patterns, a keyword claimed by two categories, ...)
//
// =============================================================================

package validation

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ginjaninja78/statement-normalizer/internal/config"
	"github.com/ginjaninja78/statement-normalizer/internal/csvparser"
	"github.com/ginjaninja78/statement-normalizer/internal/reconcile"
	"github.com/ginjaninja78/statement-normalizer/internal/rules"
	"github.com/ginjaninja78/statement-normalizer/internal/types"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError is one finding.
type ValidationError struct {
	Severity string

	// Source names what was checked: "config", "profile:<code>" or
	// "rules".
	Source string

	// Field is the setting, e.g. "csv_settings.encoding".
	Field string

	Value   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("[%s] %s %s: %s", strings.ToUpper(e.Severity), e.Source, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s %s: %s (value: '%s')",
		strings.ToUpper(e.Severity), e.Source, e.Field, e.Message, e.Value)
}

// ValidationResult collects the findings of a run.
type ValidationResult struct {
	// IsValid is false when there is at least one error, or a warning with
	// TreatWarningsAsErrors set.
	IsValid bool

	Errors       []*ValidationError
	ErrorCount   int
	WarningCount int

	ProfilesValidated int
	RulesValidated    int
}

// ValidationOptions tune a Validator.
type ValidationOptions struct {
	TreatWarningsAsErrors bool
}

// Validator runs the checks.
type Validator struct {
	options ValidationOptions
	result  *ValidationResult
}

// NewValidator creates a validator.
func NewValidator(options ValidationOptions) *Validator {
	return &Validator{options: options}
}

// =============================================================================
// MAIN VALIDATION FUNCTION
// =============================================================================

// ValidateAll checks the main configuration, every profile and the rule
// set.
//
// PARAMETERS:
//   - cfg: The loaded main configuration.
//   - profiles: The loaded source profiles.
//   - rs: The category rules.
//
// RETURNS:
//   - The collected findings. The result is never nil.
func (v *Validator) ValidateAll(cfg *config.MainConfig, profiles []*config.SourceProfile, rs rules.RuleSet) *ValidationResult {
	v.result = &ValidationResult{IsValid: true, Errors: make([]*ValidationError, 0)}

	v.validateMainConfig(cfg)
	v.validateProfiles(profiles)
	v.validateRules(rs)

	return v.result
}

func (v *Validator) add(severity, source, field, value, message string) {
	v.result.Errors = append(v.result.Errors, &ValidationError{
		Severity: severity,
		Source:   source,
		Field:    field,
		Value:    value,
		Message:  message,
	})

	if severity == SeverityError {
		v.result.ErrorCount++
		v.result.IsValid = false
		return
	}
	v.result.WarningCount++
	if v.options.TreatWarningsAsErrors {
		v.result.IsValid = false
	}
}

// =============================================================================
// MAIN CONFIGURATION
// =============================================================================

func (v *Validator) validateMainConfig(cfg *config.MainConfig) {
	const source = "config"

	if !strings.Contains(cfg.OutputNameFormat, "{uuid}") && !strings.Contains(cfg.OutputNameFormat, "{timestamp}") {
		v.add(SeverityWarning, source, "output_name_format", cfg.OutputNameFormat,
			"without {uuid} or {timestamp} two runs over the same file overwrite each other")
	}
	switch cfg.OutputType {
	case "json", "xlsx":
	default:
		v.add(SeverityError, source, "output_type", cfg.OutputType, "must be json or xlsx")
	}
	if cfg.MaxConcurrency < 1 {
		v.add(SeverityError, source, "max_concurrency", fmt.Sprint(cfg.MaxConcurrency), "must be at least 1")
	}

	v.validateCurrency(source, "defaults.currency", cfg.Defaults.Currency)
	v.validateCSVSettings(source, "csv", cfg.CSV)
}

// =============================================================================
// SOURCE PROFILES
// =============================================================================

func (v *Validator) validateProfiles(profiles []*config.SourceProfile) {
	seen := make(map[string]bool, len(profiles))

	for _, profile := range profiles {
		v.result.ProfilesValidated++
		source := "profile:" + profile.ProfileCode

		if seen[profile.ProfileCode] {
			v.add(SeverityError, source, "profile_code", profile.ProfileCode, "duplicate profile code")
		}
		seen[profile.ProfileCode] = true

		if len(profile.FileMatchingPatterns) == 0 {
			v.add(SeverityWarning, source, "file_matching_patterns", "", "no patterns; the profile never applies")
		}
		for _, pattern := range profile.FileMatchingPatterns {
			if _, err := filepath.Match(pattern, ""); err != nil {
				v.add(SeverityError, source, "file_matching_patterns", pattern, "invalid glob pattern")
			}
		}

		if profile.DefaultCurrency != "" {
			v.validateCurrency(source, "default_currency", profile.DefaultCurrency)
		}
		v.validateCSVSettings(source, "csv_settings", profile.CSVSettings)
		v.validateColumnSynonyms(source, profile.ColumnSynonyms)
	}
}

func (v *Validator) validateColumnSynonyms(source string, synonyms map[string][]string) {
	fields := make([]string, 0, len(synonyms))
	for field := range synonyms {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		if !isCanonicalField(field) {
			v.add(SeverityError, source, "column_synonyms", field,
				fmt.Sprintf("unknown field; expected one of %s", strings.Join(reconcile.Fields, ", ")))
			continue
		}
		for _, name := range synonyms[field] {
			if strings.TrimSpace(name) == "" {
				v.add(SeverityWarning, source, "column_synonyms."+field, name, "blank column name")
			}
		}
	}
}

func (v *Validator) validateCSVSettings(source, prefix string, settings config.CSVSettings) {
	if _, err := csvparser.ResolveDelimiter(settings.Delimiter); err != nil {
		v.add(SeverityError, source, prefix+".delimiter", settings.Delimiter, err.Error())
	}
	if !csvparser.KnownEncoding(settings.Encoding) {
		v.add(SeverityError, source, prefix+".encoding", settings.Encoding,
			fmt.Sprintf("unsupported encoding; expected auto or one of %s", strings.Join(csvparser.SupportedEncodings(), ", ")))
	}
	if settings.HeaderRows > 0 && settings.DataStartRow > 0 && settings.DataStartRow <= settings.HeaderRows {
		v.add(SeverityError, source, prefix+".data_start_row", fmt.Sprint(settings.DataStartRow),
			fmt.Sprintf("must be after the %d header row(s)", settings.HeaderRows))
	}
}

func (v *Validator) validateCurrency(source, field, code string) {
	if len(code) != 3 || strings.ToUpper(code) != code {
		v.add(SeverityWarning, source, field, code, "expected a three-letter upper-case ISO 4217 code")
	}
}

// =============================================================================
// CATEGORY RULES
// =============================================================================

func (v *Validator) validateRules(rs rules.RuleSet) {
	const source = "rules"

	owner := make(map[string]string)
	for _, rule := range rs.Rules {
		v.result.RulesValidated++

		if strings.TrimSpace(rule.Category) == "" {
			v.add(SeverityError, source, "category", rule.Category, "empty category name")
			continue
		}
		if rule.Category == types.Uncategorized {
			if len(rule.Keywords) > 0 {
				v.add(SeverityWarning, source, rule.Category, strings.Join(rule.Keywords, ", "),
					"keywords on the fallback category are ignored")
			}
			continue
		}
		if len(rule.Keywords) == 0 {
			v.add(SeverityWarning, source, rule.Category, "", "no keywords; the category never matches")
		}

		for _, keyword := range rule.Keywords {
			kw := strings.ToLower(strings.TrimSpace(keyword))
			if kw == "" {
				v.add(SeverityWarning, source, rule.Category, keyword, "blank keyword")
				continue
			}
			if previous, ok := owner[kw]; ok && previous != rule.Category {
				v.add(SeverityWarning, source, rule.Category, keyword,
					fmt.Sprintf("also listed under %q; %q wins because it comes later", previous, rule.Category))
			}
			owner[kw] = rule.Category
		}
	}
}

func isCanonicalField(field string) bool {
	for _, f := range reconcile.Fields {
		if f == field {
			return true
		}
	}
	return false
}
