package internal

import (
	"fmt"
	"net"
	"strconv"

	"github.com/go-playground/validator/v10"
)

const (
	AuthModeOpen     = "open"
	AuthModePassword = "password"
)

var validate = validator.New()

// Config is the whole environment surface of the server. Only the listen
// port is required by the protocol contract; everything else has a lab-safe
// default.
type Config struct {
	Host            string `env:"HOST,default=127.0.0.1"`
	Port            int    `env:"SSH_SERVER_PORT,default=2223" validate:"min=1,max=65535"`
	HostKeyPath     string `env:"HOST_KEY_PATH"`
	BadgerFilepath  string `env:"BADGER_FILEPATH"`
	LogLevel        string `env:"LOG_LEVEL,default=INFO"`
	CharReplacement string `env:"CHARACTER_REPLACEMENT,default=*" validate:"required"`
	AuthMode        string `env:"AUTH_MODE,default=open" validate:"oneof=open password"`
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.AuthMode == AuthModePassword && c.BadgerFilepath == "" {
		return fmt.Errorf("AUTH_MODE=password requires BADGER_FILEPATH")
	}
	return nil
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// CharacterRune enforces that the configured replacement is one character.
func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
