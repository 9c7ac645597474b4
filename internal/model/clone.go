package model

// Clone returns a deep copy of the document. Snapshots handed to resolvers and
// callers are clones so nothing outside the session aliases its tree.
func (d Document) Clone() Document {
	out := d
	if d.Sections != nil {
		out.Sections = make([]Section, len(d.Sections))
		for idx, section := range d.Sections {
			out.Sections[idx] = section.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the section.
func (s Section) Clone() Section {
	out := s
	if s.Fields != nil {
		out.Fields = make([]Field, len(s.Fields))
		for idx, field := range s.Fields {
			out.Fields[idx] = field.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the field, including its response.
func (f Field) Clone() Field {
	out := f
	out.Options = cloneOptions(f.Options)
	out.Response = CloneValue(f.Response)
	if f.Validations != nil {
		out.Validations = make([]ValidationRule, len(f.Validations))
		for idx, rule := range f.Validations {
			out.Validations[idx] = ValidationRule{Kind: rule.Kind, Params: cloneStrings(rule.Params)}
		}
	}
	out.Metadata = cloneStrings(f.Metadata)
	return out
}

// CloneValue copies list and map responses so the copy can be mutated
// independently.
func CloneValue(value any) any {
	switch typed := value.(type) {
	case []string:
		return append([]string(nil), typed...)
	case []any:
		clone := make([]any, len(typed))
		for idx, item := range typed {
			clone[idx] = CloneValue(item)
		}
		return clone
	case map[string]any:
		clone := make(map[string]any, len(typed))
		for key, item := range typed {
			clone[key] = CloneValue(item)
		}
		return clone
	default:
		return typed
	}
}

func cloneOptions(options []Option) []Option {
	if options == nil {
		return nil
	}
	return append([]Option(nil), options...)
}

func cloneStrings(src map[string]string) map[string]string {
	if src == nil {
		return nil
	}
	out := make(map[string]string, len(src))
	for key, value := range src {
		out[key] = value
	}
	return out
}
