// Package config loads ledsim settings from a TOML file, LEDSIM_* environment
// variables and command-line flags, and watches files for changes.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/ledsim/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to every `env` tag.
const EnvPrefix = "LEDSIM_"

var durationType = reflect.TypeOf(time.Duration(0))

// LoadConfig fills the tagged fields of opts, a pointer to a struct.
// Precedence is flags > environment > config file > field defaults.
//
// A field named Config holds the config file path. Fields are matched to
// file keys with a dotted `toml:"strip.leds"` tag and to the environment with
// `env:"STRIP_LEDS"` (read as LEDSIM_STRIP_LEDS). Fields whose flag was set
// on cmd are left alone. A missing config file is not an error.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config: expected pointer to struct, got %T", opts)
	}
	v = v.Elem()
	t := v.Type()

	changed := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().Visit(func(f *pflag.Flag) {
			changed[f.Name] = true
		})
	}

	var file map[string]any
	if f := v.FieldByName("Config"); f.IsValid() && f.Kind() == reflect.String && f.String() != "" {
		data, err := os.ReadFile(f.String())
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, &file); err != nil {
				return fmt.Errorf("config: parse %s: %w", f.String(), err)
			}
		case !os.IsNotExist(err):
			return fmt.Errorf("config: read %s: %w", f.String(), err)
		}
	}

	for i := range t.NumField() {
		field, sf := v.Field(i), t.Field(i)
		if !field.CanSet() || changed[flagName(sf.Name)] {
			continue
		}

		if key := sf.Tag.Get("toml"); key != "" && file != nil {
			if raw := lookup(file, key); raw != nil {
				if err := setValue(field, raw); err != nil {
					return fmt.Errorf("config: %s: %w", key, err)
				}
			}
		}

		if env := sf.Tag.Get("env"); env != "" {
			if raw, ok := os.LookupEnv(EnvPrefix + env); ok && raw != "" {
				if err := setString(field, raw); err != nil {
					return fmt.Errorf("config: %s%s: %w", EnvPrefix, env, err)
				}
			}
		}
	}
	return nil
}

// flagName turns a field name into the kebab-case flag huma derives from it,
// e.g. FrameDurationMs becomes frame-duration-ms.
func flagName(field string) string {
	var b strings.Builder
	for i, r := range field {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte('-')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// lookup resolves a dotted key in decoded TOML tables.
func lookup(data map[string]any, key string) any {
	parts := strings.Split(key, ".")
	cur := data
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			return nil
		}
		cur = next
	}
	return cur[parts[len(parts)-1]]
}

// setValue assigns a decoded TOML value.
func setValue(field reflect.Value, raw any) error {
	if field.Type() == durationType {
		switch x := raw.(type) {
		case string:
			return setString(field, x)
		case int64:
			field.SetInt(x * int64(time.Millisecond))
			return nil
		}
		return fmt.Errorf("cannot use %T as duration", raw)
	}

	switch field.Kind() {
	case reflect.String:
		if s, ok := raw.(string); ok {
			field.SetString(s)
			return nil
		}
	case reflect.Bool:
		if b, ok := raw.(bool); ok {
			field.SetBool(b)
			return nil
		}
	case reflect.Int, reflect.Int64:
		if n, ok := raw.(int64); ok {
			field.SetInt(n)
			return nil
		}
	case reflect.Float64:
		switch n := raw.(type) {
		case float64:
			field.SetFloat(n)
			return nil
		case int64:
			field.SetFloat(float64(n))
			return nil
		}
	case reflect.Slice:
		items, ok := raw.([]any)
		if ok && field.Type().Elem().Kind() == reflect.String {
			out := make([]string, 0, len(items))
			for _, it := range items {
				s, isString := it.(string)
				if !isString {
					return fmt.Errorf("list item %v is not a string", it)
				}
				out = append(out, s)
			}
			field.Set(reflect.ValueOf(out))
			return nil
		}
	}
	return fmt.Errorf("cannot use %T for %s field", raw, field.Kind())
}

// setString parses an environment value into field.
func setString(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		var out []string
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		field.Set(reflect.ValueOf(out))
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}

// LoadLoggingConfig reads the [logging] table of path. Defaults are returned
// when the file is missing or unreadable, so logging can start before the
// rest of the configuration is validated.
func LoadLoggingConfig(path string) logging.Config {
	cfg := logging.Config{Level: "info", Format: "text", Modules: map[string]string{}}
	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	var doc struct {
		Logging logging.Config `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return cfg
	}
	if doc.Logging.Level != "" {
		cfg.Level = doc.Logging.Level
	}
	if doc.Logging.Format != "" {
		cfg.Format = doc.Logging.Format
	}
	if doc.Logging.BufferSize > 0 {
		cfg.BufferSize = doc.Logging.BufferSize
	}
	for module, level := range doc.Logging.Modules {
		cfg.Modules[module] = level
	}
	return cfg
}
