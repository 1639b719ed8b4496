package doctor

import (
	"context"
	"strings"

	"github.com/hay-kot/hwbot/internal/core/config"
)

// SecretsCheck verifies the required secrets are present. Values are never
// reported.
type SecretsCheck struct {
	environ map[string]string
}

// NewSecretsCheck creates a secrets check against environ, a KEY -> value map
// of the environment.
func NewSecretsCheck(environ map[string]string) *SecretsCheck {
	return &SecretsCheck{environ: environ}
}

func (c *SecretsCheck) Name() string {
	return "Secrets"
}

func (c *SecretsCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	for _, key := range []string{config.EnvPracticumToken, config.EnvTelegramToken, config.EnvTelegramChatID} {
		item := CheckItem{Label: key, Status: StatusPass, Detail: "set"}
		if strings.TrimSpace(c.environ[key]) == "" {
			item.Status = StatusFail
			item.Detail = "not set"
		}
		result.Items = append(result.Items, item)
	}

	return result
}
