package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"

	"go.uber.org/fx"
)

const moduleName = "config"

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig
	EnvFilePath    string `name:"envFilePath" optional:"true"`
	Expander       EnvironmentExpander
}

// LoadConfig builds the configuration: defaults, then .env, then the embedded YAML
// (with ${VAR} placeholders expanded), then SURFIN_* overrides, then the well-known
// variables OPENWEATHER_API_KEY and POSTGRES_*.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig, expander EnvironmentExpander) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	}
	if expander == nil {
		expander = NewOsEnvironmentExpander()
	}

	cfg := NewConfig()

	if len(embeddedConfig) > 0 {
		expanded, err := expander.Expand(embeddedConfig)
		if err != nil {
			return nil, exception.NewConfigurationError(moduleName, "failed to expand environment placeholders", err)
		}
		var yamlConfig Config
		if err := yaml.Unmarshal(expanded, &yamlConfig); err != nil {
			return nil, exception.NewConfigurationError(moduleName, "failed to unmarshal embedded config", err)
		}
		mergeConfig(cfg, &yamlConfig)
	}

	// surfin.weather.api_key -> SURFIN_WEATHER_API_KEY
	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewConfigurationError(moduleName, "failed to load config from environment variables", err)
	}
	if err := applyWellKnownEnv(cfg); err != nil {
		return nil, exception.NewConfigurationError(moduleName, "failed to apply environment variables", err)
	}
	cfg.EmbeddedConfig = embeddedConfig
	return cfg, nil
}

// NewConfigProvider is an Fx provider that loads *Config and applies the logging settings.
// Job-specific validation happens later through Validate, once the job name is known.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := LoadConfig(params.EnvFilePath, params.EmbeddedConfig, params.Expander)
	if err != nil {
		return nil, err
	}

	logger.SetFormat(cfg.Surfin.System.Logging.Format)
	logger.SetLogLevel(cfg.Surfin.System.Logging.Level)
	logger.Debugf("Log level set to: %s", cfg.Surfin.System.Logging.Level)
	return cfg, nil
}

// applyWellKnownEnv maps the variables used by the deployment (shared with the scheduler)
// onto the configuration. Only variables that are set take effect.
func applyWellKnownEnv(cfg *Config) error {
	if v, ok := os.LookupEnv("OPENWEATHER_API_KEY"); ok {
		cfg.Surfin.Weather.APIKey = v
	}

	ref := cfg.Surfin.Pipeline.DBRef
	db, exists := cfg.Surfin.Adapter.Database[ref]
	changed := false
	if v, ok := os.LookupEnv("POSTGRES_HOST"); ok {
		db.Host, changed = v, true
	}
	if v, ok := os.LookupEnv("POSTGRES_DB"); ok {
		db.Database, changed = v, true
	}
	if v, ok := os.LookupEnv("POSTGRES_USER"); ok {
		db.User, changed = v, true
	}
	if v, ok := os.LookupEnv("POSTGRES_PASSWORD"); ok {
		db.Password, changed = v, true
	}
	if v, ok := os.LookupEnv("POSTGRES_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("POSTGRES_PORT must be an integer: %w", err)
		}
		db.Port, changed = port, true
	}
	if changed {
		if !exists && db.Type == "" {
			db.Type = "postgres"
			db.Sslmode = "disable"
		}
		cfg.Surfin.Adapter.Database[ref] = db
	}
	return nil
}

// mergeConfig copies every non-zero value of source into dest.
func mergeConfig(dest, source *Config) {
	mergeStruct(reflect.ValueOf(&dest.Surfin).Elem(), reflect.ValueOf(&source.Surfin).Elem())
}

// mergeStruct walks dest and source field by field. Structs are merged recursively,
// maps are merged key by key (a source entry replaces the whole dest entry),
// and any other non-zero source value overwrites dest.
func mergeStruct(dest, source reflect.Value) {
	for i := 0; i < dest.NumField(); i++ {
		d, s := dest.Field(i), source.Field(i)
		if !d.CanSet() {
			continue
		}
		switch d.Kind() {
		case reflect.Struct:
			mergeStruct(d, s)
		case reflect.Map:
			if s.IsNil() {
				continue
			}
			if d.IsNil() {
				d.Set(reflect.MakeMap(d.Type()))
			}
			iter := s.MapRange()
			for iter.Next() {
				d.SetMapIndex(iter.Key(), iter.Value())
			}
		case reflect.Slice:
			if !s.IsNil() {
				d.Set(s)
			}
		default:
			if !s.IsZero() {
				d.Set(s)
			}
		}
	}
}

// loadStructFromEnv recursively loads values from environment variables named after the yaml tags.
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}

		if field.Kind() == reflect.Map && field.Type().Key().Kind() == reflect.String && field.Type().Elem().Kind() == reflect.Struct {
			// e.g. SURFIN_ADAPTER_DATABASE_WORKLOAD_HOST sets Database["workload"].Host
			if err := loadMapOfStructsFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// loadMapOfStructsFromEnv fills a map[string]struct from variables of the form <prefix><KEY>_<FIELD>.
// The key is the first underscore-separated segment, lowercased.
func loadMapOfStructsFromEnv(mapField reflect.Value, prefix string) error {
	if mapField.IsNil() {
		mapField.Set(reflect.MakeMap(mapField.Type()))
	}
	elemType := mapField.Type().Elem()

	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, prefix) {
			continue
		}
		parts := strings.SplitN(strings.TrimPrefix(env, prefix), "=", 2)
		if len(parts) != 2 {
			continue
		}
		keyAndField := strings.SplitN(parts[0], "_", 2)
		if len(keyAndField) != 2 {
			continue
		}
		mapKey := strings.ToLower(keyAndField[0])

		structVal := reflect.New(elemType).Elem()
		if existing := mapField.MapIndex(reflect.ValueOf(mapKey)); existing.IsValid() {
			structVal.Set(existing)
		}
		if err := setStructFieldFromEnv(structVal, keyAndField[1], parts[1]); err != nil {
			return fmt.Errorf("failed to set %s: %w", parts[0], err)
		}
		mapField.SetMapIndex(reflect.ValueOf(mapKey), structVal)
	}
	return nil
}

// setStructFieldFromEnv sets the field whose yaml tag equals fieldName (case-insensitive).
// Unknown field names are ignored.
func setStructFieldFromEnv(structVal reflect.Value, fieldName string, value string) error {
	typ := structVal.Type()
	for i := 0; i < typ.NumField(); i++ {
		yamlTag := strings.Split(typ.Field(i).Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		if strings.EqualFold(yamlTag, fieldName) {
			return setField(structVal.Field(i), value)
		}
	}
	return nil
}

// setField converts value to the kind of field. Comma-separated values fill []string fields.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return nil
		}
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		field.Set(reflect.ValueOf(items))
	}
	return nil
}
