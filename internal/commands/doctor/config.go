package doctor

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/hay-kot/criterio"

	"github.com/abu-bakrrd/dripuzz-sub000/internal/core/config"
)

// ConfigCheck reports the effective relay configuration: which file was
// read, where the relay listens, where messages go, and any field errors or
// warnings.
type ConfigCheck struct {
	config     *config.Config
	configPath string
}

// NewConfigCheck creates a new configuration check.
func NewConfigCheck(cfg *config.Config, configPath string) *ConfigCheck {
	return &ConfigCheck{
		config:     cfg,
		configPath: configPath,
	}
}

func (c *ConfigCheck) Name() string {
	return "Configuration"
}

func (c *ConfigCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	if c.config == nil {
		result.Items = append(result.Items, CheckItem{
			Label:  "Config loaded",
			Status: StatusFail,
			Detail: "configuration not loaded",
		})
		return result
	}

	result.Items = append(result.Items, c.fileItem())

	err := c.config.ValidateDeep(c.configPath)
	if err == nil {
		result.Items = append(result.Items,
			CheckItem{Label: "Listen address", Status: StatusPass, Detail: c.config.HTTP.Addr},
			CheckItem{Label: "Message store", Status: StatusPass, Detail: c.config.StoreTarget()},
		)
	} else {
		result.Items = append(result.Items, fieldErrorItems(err)...)
	}

	for _, w := range c.config.Warnings() {
		label := strings.ToLower(w.Category)
		if w.Item != "" {
			label += "." + w.Item
		}
		result.Items = append(result.Items, CheckItem{
			Label:  label,
			Status: StatusWarn,
			Detail: w.Message,
		})
	}

	return result
}

func (c *ConfigCheck) fileItem() CheckItem {
	if c.configPath == "" {
		return CheckItem{Label: "Config file", Status: StatusPass, Detail: "none, using defaults and environment"}
	}
	if _, err := os.Stat(c.configPath); os.IsNotExist(err) {
		return CheckItem{Label: "Config file", Status: StatusPass, Detail: c.configPath + " not found, using defaults and environment"}
	}
	return CheckItem{Label: "Config file", Status: StatusPass, Detail: c.configPath}
}

// fieldErrorItems turns a validation error into one failed item per field.
func fieldErrorItems(err error) []CheckItem {
	var fieldErrs criterio.FieldErrors
	if !errors.As(err, &fieldErrs) {
		return []CheckItem{{Label: "validation", Status: StatusFail, Detail: err.Error()}}
	}

	items := make([]CheckItem, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		label := fe.Field
		if label == "" {
			label = "validation"
		}
		items = append(items, CheckItem{Label: label, Status: StatusFail, Detail: fe.Err.Error()})
	}
	return items
}
