package config

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/crb2nu/loom-zed/internal/platform"
	lua "github.com/yuin/gopher-lua"
)

// luaTimeout bounds evaluation of a Lua settings file.
const luaTimeout = 5 * time.Second

// ParseError is a Lua settings failure with a friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// FormatError formats err for display. Non-verbose output drops the Lua
// stack traceback.
func FormatError(err error, verbose bool) string {
	parseErr, ok := err.(*ParseError)
	if !ok {
		return err.Error()
	}
	if verbose {
		return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
	}
	detail := parseErr.Detail
	if idx := strings.Index(detail, "stack traceback"); idx > 0 {
		detail = strings.TrimSpace(detail[:idx])
	}
	return fmt.Sprintf("%s: %s", parseErr.Message, detail)
}

// evalLua runs code in a sandboxed VM and converts the global "loom" table
// into a settings document:
//
//	loom = {
//	  download = { tag = platform.when(platform.is_windows, "v0.9.1") },
//	  command  = { args = { "proxy" } },
//	}
func (l *Loader) evalLua(ctx context.Context, code string) (map[string]any, error) {
	L := newSandboxedVM()
	defer L.Close()

	ctx, cancel := context.WithTimeout(ctx, luaTimeout)
	defer cancel()
	L.SetContext(ctx)

	if l.detector != nil {
		info, err := l.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("detect platform: %w", err)
		}
		if err := platform.InjectPlatformTable(L, info); err != nil {
			return nil, fmt.Errorf("inject platform table: %w", err)
		}
	}

	if err := L.DoString(code); err != nil {
		if ctx.Err() != nil {
			return nil, &ParseError{Message: "Lua evaluation aborted", Detail: ctx.Err().Error()}
		}
		return nil, &ParseError{Message: "Lua syntax error", Detail: err.Error()}
	}

	root := L.GetGlobal("loom")
	switch root.Type() {
	case lua.LTNil:
		return map[string]any{}, nil
	case lua.LTTable:
	default:
		return nil, &ParseError{
			Message: "invalid 'loom' table",
			Detail:  fmt.Sprintf("expected table, got %s", root.Type()),
		}
	}

	v, err := luaToGo(root, "loom")
	if err != nil {
		return nil, err
	}
	doc, ok := v.(map[string]any)
	if !ok {
		if v != nil {
			return nil, &ParseError{Message: "invalid 'loom' table", Detail: "expected keyed table, got list"}
		}
		doc = map[string]any{}
	}
	return doc, nil
}

// luaToGo converts a Lua value to its JSON-shaped Go equivalent. Tables
// with only integer keys become lists in key order (nil holes left by
// platform.when are skipped), tables with only string keys become maps, and
// empty tables become nil.
func luaToGo(v lua.LValue, path string) (any, error) {
	switch v := v.(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LBool:
		return bool(v), nil
	case lua.LNumber:
		return float64(v), nil
	case lua.LString:
		return string(v), nil
	case *lua.LTable:
		return tableToGo(v, path)
	default:
		return nil, &ParseError{
			Message: "unsupported value in settings",
			Detail:  fmt.Sprintf("%s is a %s", path, v.Type()),
		}
	}
}

func tableToGo(t *lua.LTable, path string) (any, error) {
	var (
		indices []int
		keys    []string
		mixed   bool
	)
	t.ForEach(func(k, _ lua.LValue) {
		switch k := k.(type) {
		case lua.LNumber:
			if float64(k) != float64(int(k)) {
				mixed = true
				return
			}
			indices = append(indices, int(k))
		case lua.LString:
			keys = append(keys, string(k))
		default:
			mixed = true
		}
	})
	if mixed || (len(indices) > 0 && len(keys) > 0) {
		return nil, &ParseError{
			Message: "unsupported table in settings",
			Detail:  fmt.Sprintf("%s mixes list entries and named fields", path),
		}
	}

	if len(indices) > 0 {
		sort.Ints(indices)
		list := make([]any, 0, len(indices))
		for _, i := range indices {
			item, err := luaToGo(t.RawGetInt(i), fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			if item != nil {
				list = append(list, item)
			}
		}
		return list, nil
	}
	if len(keys) == 0 {
		return nil, nil
	}

	m := make(map[string]any, len(keys))
	for _, k := range keys {
		item, err := luaToGo(t.RawGetString(k), path+"."+k)
		if err != nil {
			return nil, err
		}
		if item != nil {
			m[k] = item
		}
	}
	return m, nil
}
