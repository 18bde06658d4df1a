package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Alia5/viistream/internal/configpaths"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"
)

// ConfigCommand holds the config subcommands.
type ConfigCommand struct {
	Init ConfigInit `cmd:"" help:"Generate a configuration template"`
}

// ConfigInit writes a config file pre-filled with the defaults of a command's flags.
type ConfigInit struct {
	Command string `arg:"" name:"command" help:"Command whose flags the file covers" enum:"stream"`
	Format  string `help:"Output format" enum:"json,yaml,toml" default:"json"`
	Output  string `help:"Destination path (defaults to <command>.<format> in the working directory)"`
	Force   bool   `help:"Overwrite an existing file"`
}

// Run builds the template from the kong tags of the command struct and writes it.
func (c *ConfigInit) Run() error {
	format := normalizeFormat(c.Format)
	if format == "" {
		return fmt.Errorf("unsupported format: %s", c.Format)
	}

	var root map[string]any
	switch c.Command {
	case "stream":
		root = buildMapFromStruct(reflect.TypeOf(Stream{}))
	default:
		return fmt.Errorf("unknown command %q; expected \"stream\"", c.Command)
	}

	dest := c.Output
	if dest == "" {
		dest = c.Command + "." + format
	}
	if !c.Force {
		if _, err := os.Stat(dest); err == nil {
			return fmt.Errorf("%s exists; use --force to overwrite", dest)
		}
	}
	if err := configpaths.EnsureDir(dest); err != nil {
		return err
	}

	data, err := marshalTemplate(format, root)
	if err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}

func marshalTemplate(format string, root map[string]any) ([]byte, error) {
	switch format {
	case "yaml":
		return yaml.Marshal(root)
	case "toml":
		return toml.Marshal(root)
	default:
		return json.MarshalIndent(root, "", "  ")
	}
}

func normalizeFormat(f string) string {
	switch strings.ToLower(f) {
	case "json":
		return "json"
	case "yaml", "yml":
		return "yaml"
	case "toml":
		return "toml"
	default:
		return ""
	}
}

func lowerCamel(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToLower(r)) + s[n:]
}

func buildMapFromStruct(t reflect.Type) map[string]any {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	out := map[string]any{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if f.Tag.Get("kong") == "-" {
			continue
		}

		if _, ok := f.Tag.Lookup("embed"); ok {
			prefix := f.Tag.Get("prefix")
			name := strings.TrimSuffix(prefix, ".")
			sub := buildMapFromStruct(f.Type)
			if name != "" {
				out[name] = sub
			} else {
				for k, v := range sub {
					out[k] = v
				}
			}
			continue
		}

		key := lowerCamel(f.Name)
		if name := f.Tag.Get("name"); name != "" {
			key = name
		}
		def := f.Tag.Get("default")
		val := defaultValueForField(f.Type, def)
		if val != nil {
			out[key] = val
		}
	}
	return out
}

func defaultValueForField(t reflect.Type, def string) any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "time" && t.Name() == "Duration" {
		if def != "" {
			return def
		}
		return "0s"
	}
	switch t.Kind() {
	case reflect.String:
		return def
	case reflect.Bool:
		if def == "" {
			return false
		}
		b, err := strconv.ParseBool(def)
		if err != nil {
			return false
		}
		return b
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if def == "" {
			return 0
		}
		n, err := strconv.ParseInt(def, 10, 64)
		if err != nil {
			return 0
		}
		return n
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if def == "" {
			return 0
		}
		n, err := strconv.ParseUint(def, 10, 64)
		if err != nil {
			return 0
		}
		return n
	case reflect.Float32, reflect.Float64:
		if def == "" {
			return 0
		}
		f, err := strconv.ParseFloat(def, 64)
		if err != nil {
			return 0
		}
		return f
	case reflect.Slice:
		if def == "" {
			return []string{}
		}
		return strings.Split(def, ",")
	case reflect.Struct:
		return buildMapFromStruct(t)
	default:
		return nil
	}
}
