//go:build production

package auth

import "brokerhub/internal/platform/config"

func devHeaderStrategy(config.Environment) headerStrategy {
	return nil
}
