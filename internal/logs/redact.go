package logs

import (
	"regexp"

	"go.uber.org/zap/zapcore"
)

// Redactor wraps a core and masks credentials in messages and string fields.
// Server output is logged line by line, so anything the child prints about
// its environment passes through here.
type Redactor struct {
	zapcore.Core
	rules []redactRule
}

type redactRule struct {
	regex *regexp.Regexp
	mask  func(match []string) string
}

var defaultRules = []redactRule{
	// NAME_TOKEN=value, api-key: value, password = "value"
	{
		regex: regexp.MustCompile(`(?i)\b([A-Z0-9_.-]*(?:secret|token|password|passwd|api[_-]?key)[A-Z0-9_.-]*)(\s*[=:]\s*)("?)([^\s"]+)("?)`),
		mask: func(m []string) string {
			return m[1] + m[2] + m[3] + maskValue(m[4]) + m[5]
		},
	},
	{
		regex: regexp.MustCompile(`\bBearer\s+([A-Za-z0-9\-._~+/]+=*)`),
		mask: func(m []string) string {
			return "Bearer " + maskValue(m[1])
		},
	},
	{
		regex: regexp.MustCompile(`\b(gh[poushr]_[A-Za-z0-9]{36,255})\b`),
		mask: func(m []string) string {
			return m[1][:7] + "***"
		},
	},
	{
		regex: regexp.MustCompile(`\b(eyJ[A-Za-z0-9\-_]+)\.eyJ[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]+\b`),
		mask: func(m []string) string {
			return m[1] + ".***"
		},
	},
}

// NewRedactor wraps core
func NewRedactor(core zapcore.Core) *Redactor {
	return &Redactor{Core: core, rules: defaultRules}
}

// Redact applies every rule to s
func (r *Redactor) Redact(s string) string {
	for _, rule := range r.rules {
		if !rule.regex.MatchString(s) {
			continue
		}
		s = rule.regex.ReplaceAllStringFunc(s, func(match string) string {
			return rule.mask(rule.regex.FindStringSubmatch(match))
		})
	}
	return s
}

func (r *Redactor) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	entry.Message = r.Redact(entry.Message)
	return r.Core.Write(entry, r.redactFields(fields))
}

func (r *Redactor) With(fields []zapcore.Field) zapcore.Core {
	return &Redactor{Core: r.Core.With(r.redactFields(fields)), rules: r.rules}
}

func (r *Redactor) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if r.Enabled(entry.Level) {
		return ce.AddCore(entry, r)
	}
	return ce
}

func (r *Redactor) redactFields(fields []zapcore.Field) []zapcore.Field {
	out := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		if f.Type == zapcore.StringType {
			f.String = r.Redact(f.String)
		}
		out[i] = f
	}
	return out
}

// maskValue keeps a short prefix and suffix of long values
func maskValue(value string) string {
	if len(value) <= 8 {
		return "****"
	}
	return value[:3] + "***" + value[len(value)-2:]
}
