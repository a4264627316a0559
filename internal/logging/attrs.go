package logging

import (
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"
)

// handlerState is the level, WithAttrs attributes and WithGroup prefix
// shared by the journal and buffer handlers.
type handlerState struct {
	level  slog.Leveler
	attrs  []scopedAttr
	groups []string
}

// scopedAttr remembers the groups that were open when an attribute was
// added with WithAttrs.
type scopedAttr struct {
	groups []string
	attr   slog.Attr
}

func (s handlerState) enabled(level slog.Level) bool {
	return level >= s.level.Level()
}

func (s handlerState) withAttrs(attrs []slog.Attr) handlerState {
	s.attrs = slices.Clip(s.attrs)
	for _, a := range attrs {
		s.attrs = append(s.attrs, scopedAttr{groups: s.groups, attr: a})
	}
	return s
}

func (s handlerState) withGroup(name string) handlerState {
	if name == "" {
		return s
	}
	s.groups = append(slices.Clip(s.groups), name)
	return s
}

// each calls fn for every leaf attribute of the handler and of r, with
// the group path leading to it. Groups are flattened.
func (s handlerState) each(r slog.Record, fn func(path []string, v slog.Value)) {
	for _, sa := range s.attrs {
		walkAttr(sa.groups, sa.attr, fn)
	}
	r.Attrs(func(a slog.Attr) bool {
		walkAttr(s.groups, a, fn)
		return true
	})
}

func walkAttr(groups []string, a slog.Attr, fn func(path []string, v slog.Value)) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		nested := append(slices.Clip(groups), a.Key)
		for _, ga := range a.Value.Group() {
			walkAttr(nested, ga, fn)
		}
		return
	}
	fn(append(slices.Clip(groups), a.Key), a.Value)
}

// journalField turns an attribute path into a journald field name, which
// may only hold upper case letters, digits and underscores and must not
// start with an underscore.
func journalField(path []string) string {
	key := strings.ToUpper(strings.Join(path, "_"))
	key = strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
	return strings.TrimLeft(key, "_")
}

func valueString(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	default:
		return v.String()
	}
}

// valueAny converts v for JSON encoding in log events.
func valueAny(v slog.Value) any {
	switch v.Kind() {
	case slog.KindTime, slog.KindDuration:
		return valueString(v)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return v.Any()
	default:
		return v.Any()
	}
}
