package config

// validate.go is a small linter over a decoded Pipeline. It never mutates the
// pipeline; it returns issues that the CLI prints before running.

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single validation finding. Path is a dotted path into the
// config, e.g. "source.file.path" or "transform[1].kind".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Known kinds. Kept here so validation and wiring agree on the vocabulary.
var (
	SourceKinds    = []string{"file", "http"}
	OutputKinds    = []string{"kml", "geojson", "none"}
	StorageKinds   = []string{"postgres", "sqlite", "mssql", "mysql"}
	TransformKinds = []string{"normalize", "dedup", "require"}
)

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidatePipeline performs static validation of p.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "job",
			Message:  "job is empty; metrics will use the default job name",
		})
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateParser(p.Parser)...)
	issues = append(issues, validateTransforms(p.Transform)...)
	issues = append(issues, validateOutput(p.Output)...)
	issues = append(issues, validateStorage(p.Storage)...)
	issues = append(issues, validateRuntime(p.Runtime)...)

	if !writesOutput(p.Output) && p.Storage.Kind == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output",
			Message:  "pipeline has neither an output document nor a storage sink",
		})
	}
	return issues
}

func writesOutput(o Output) bool {
	return o.Kind != "" && o.Kind != "none"
}

func validateSource(s Source) []Issue {
	var issues []Issue
	if strings.TrimSpace(s.Kind) == "" {
		return append(issues, Issue{SeverityError, "source.kind", "source.kind must not be empty"})
	}
	switch s.Kind {
	case "file":
		if strings.TrimSpace(s.File.Path) == "" {
			issues = append(issues, Issue{SeverityError, "source.file.path", "file source requires a non-empty path"})
		}
	case "http":
		u := strings.TrimSpace(s.HTTP.URL)
		if u == "" {
			issues = append(issues, Issue{SeverityError, "source.http.url", "http source requires a non-empty url"})
		} else if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			issues = append(issues, Issue{SeverityError, "source.http.url", fmt.Sprintf("url %q must use http or https", u)})
		}
		if s.HTTP.MaxRetries < 0 {
			issues = append(issues, Issue{SeverityError, "source.http.max_retries", "max_retries must be >= 0"})
		}
		if s.HTTP.InsecureSkipVerify {
			issues = append(issues, Issue{SeverityWarning, "source.http.insecure_skip_verify", "TLS verification is disabled"})
		}
	default:
		issues = append(issues, unknownKind("source.kind", s.Kind, SourceKinds))
	}
	return issues
}

func validateParser(p Parser) []Issue {
	var issues []Issue
	if p.Kind != "csv" {
		return append(issues, Issue{SeverityError, "parser.kind", fmt.Sprintf("unsupported parser kind %q; want \"csv\"", p.Kind)})
	}
	if v, ok := p.Options["comma"]; ok {
		if s, isStr := v.(string); !isStr || len([]rune(s)) != 1 {
			issues = append(issues, Issue{SeverityError, "parser.options.comma", "comma must be a single-character string"})
		}
	}
	if p.Options.Has("schema") && p.Options.Has("schema_path") {
		issues = append(issues, Issue{SeverityError, "parser.options", "schema and schema_path are mutually exclusive"})
	}
	if p.Options.Has("schema") {
		if items := listIssues("parser.options.schema", p.Options, "schema"); len(items) > 0 {
			issues = append(issues, items...)
		} else if len(p.Options.StringSlice("schema")) == 0 {
			issues = append(issues, Issue{SeverityError, "parser.options.schema", "schema must be a non-empty list of header names"})
		}
	}
	return issues
}

func validateTransforms(ts []Transform) []Issue {
	var issues []Issue
	for i, t := range ts {
		path := fmt.Sprintf("transform[%d]", i)
		switch t.Kind {
		case "normalize":
			switch f := strings.ToLower(t.Options.String("form", "nfc")); f {
			case "nfc", "nfkc", "nfd", "nfkd":
			default:
				issues = append(issues, Issue{SeverityError, path + ".options.form", fmt.Sprintf("unknown normal form %q", f)})
			}
		case "require":
			issues = append(issues, listIssues(path+".options.fields", t.Options, "fields")...)
			if len(t.Options.StringSlice("fields")) == 0 {
				issues = append(issues, Issue{SeverityError, path + ".options.fields", "require needs a non-empty fields list"})
			}
		case "dedup":
			issues = append(issues, listIssues(path+".options.keys", t.Options, "keys")...)
			if t.Options.Has("keys") && len(t.Options.StringSlice("keys")) == 0 {
				issues = append(issues, Issue{SeverityError, path + ".options.keys", "keys must be a non-empty list"})
			}
		default:
			issues = append(issues, unknownKind(path+".kind", t.Kind, TransformKinds))
		}
	}
	return issues
}

func validateOutput(o Output) []Issue {
	var issues []Issue
	switch o.Kind {
	case "", "none":
	case "kml", "geojson":
		if strings.TrimSpace(o.Path) == "" {
			issues = append(issues, Issue{SeverityError, "output.path", "output requires a path (use \"-\" for stdout)"})
		}
	default:
		issues = append(issues, unknownKind("output.kind", o.Kind, OutputKinds))
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue
	if s.Kind == "" {
		return nil
	}
	if !contains(StorageKinds, s.Kind) {
		return append(issues, unknownKind("storage.kind", s.Kind, StorageKinds))
	}
	if strings.TrimSpace(s.DB.DSN) == "" {
		issues = append(issues, Issue{SeverityError, "storage.db.dsn", "storage requires a non-empty dsn"})
	}
	if strings.TrimSpace(s.DB.Table) == "" {
		issues = append(issues, Issue{SeverityError, "storage.db.table", "storage requires a non-empty table"})
	}
	return issues
}

func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue
	if r.BatchSize < 0 {
		issues = append(issues, Issue{SeverityError, "runtime.batch_size", "batch_size must be >= 0"})
	}
	if r.ChannelBuffer < 0 {
		issues = append(issues, Issue{SeverityError, "runtime.channel_buffer", "channel_buffer must be >= 0"})
	}
	return issues
}

// listIssues reports values under key that Options.StringSlice would drop:
// a non-list value, or list items that are not strings. YAML turns unquoted
// items such as 2019 or true into numbers and booleans.
func listIssues(path string, o Options, key string) []Issue {
	v, ok := o[key]
	if !ok {
		return nil
	}
	switch vv := v.(type) {
	case []string:
		return nil
	case []any:
		var issues []Issue
		for i, x := range vv {
			if _, isStr := x.(string); !isStr {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     fmt.Sprintf("%s[%d]", path, i),
					Message:  fmt.Sprintf("item %v is a %T, not a string; quote it", x, x),
				})
			}
		}
		return issues
	default:
		return []Issue{{SeverityError, path, fmt.Sprintf("must be a list of strings, got %T", v)}}
	}
}

func unknownKind(path, kind string, known []string) Issue {
	return Issue{
		Severity: SeverityError,
		Path:     path,
		Message:  fmt.Sprintf("unknown kind %q; want one of %s", kind, strings.Join(known, ", ")),
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
