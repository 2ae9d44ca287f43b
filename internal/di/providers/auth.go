package providers

import (
	"github.com/samber/do/v2"

	"github.com/pointsbot/pointsbot-server/internal/auth"
	"github.com/pointsbot/pointsbot-server/internal/config"
	"github.com/pointsbot/pointsbot-server/internal/logger"
)

// AuthKey wraps the token signing key bytes.
type AuthKey []byte

// ProvideAuthKey loads or generates the token signing key.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.LoadOrGenerateKey(cfg.Auth.KeyPath)
	if err != nil {
		return nil, err
	}

	cfg.Auth.TokenKey = key

	log.Info("Authentication key loaded",
		"key_path", cfg.Auth.KeyPath,
		"token_duration", cfg.Auth.TokenDuration,
	)

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	authKey := do.MustInvoke[AuthKey](i)

	return auth.NewTokenService([]byte(authKey), cfg.Auth.TokenDuration)
}

// ProvideOperators provides the operator credentials allowed to request tokens.
func ProvideOperators(i do.Injector) (auth.Operators, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	operators, err := auth.ParseOperators(cfg.Auth.Operators)
	if err != nil {
		return nil, err
	}
	if len(operators) == 0 {
		log.Warn("No operators configured; every authenticated route will refuse requests")
	}
	return operators, nil
}
