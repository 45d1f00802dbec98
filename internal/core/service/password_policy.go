package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/tripeco/identity-service/internal/core/domain"
)

const (
	// DefaultPasswordRegex requires a lowercase letter, an uppercase letter,
	// a symbol and at least eight characters.
	DefaultPasswordRegex = `(?=.*[a-z])(?=.*[A-Z])(?=.*[^A-Za-z0-9\s]).{8,}`

	DefaultPasswordLength = 12
	MinPasswordLength     = 8

	developmentPassword = "12345678"
	maxGenerateAttempts = 64
	regexMatchTimeout   = 250 * time.Millisecond
)

const (
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars  = "0123456789"
	symbolChars = "!@#$%^&*()-_=+[]{}<>?"
	allChars    = lowerChars + upperChars + digitChars + symbolChars
)

// ErrPolicyUnsatisfiable is returned by Generate when no drawn password
// matches the configured pattern.
var ErrPolicyUnsatisfiable = errors.New("password policy: generated password never matched pattern")

type PasswordPolicyConfig struct {
	Production bool
	Regex      string
	Length     int
}

// PasswordPolicy generates initial passwords and enforces strength rules.
// It is safe for concurrent use.
type PasswordPolicy struct {
	production bool
	length     int
	pattern    *regexp2.Regexp
}

func NewPasswordPolicy(cfg PasswordPolicyConfig) (*PasswordPolicy, error) {
	expr := cfg.Regex
	if expr == "" {
		expr = DefaultPasswordRegex
	}
	re, err := regexp2.Compile(`\A(?:`+expr+`)\z`, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("password policy: compile pattern: %w", err)
	}
	re.MatchTimeout = regexMatchTimeout

	length := cfg.Length
	if length == 0 {
		length = DefaultPasswordLength
	}
	if length < MinPasswordLength {
		length = MinPasswordLength
	}

	return &PasswordPolicy{production: cfg.Production, length: length, pattern: re}, nil
}

// Generate returns a new plaintext password. Outside production the value is
// fixed so local environments can log in without reading mail.
func (p *PasswordPolicy) Generate() (string, error) {
	if !p.production {
		return developmentPassword, nil
	}

	for i := 0; i < maxGenerateAttempts; i++ {
		candidate, err := p.draw()
		if err != nil {
			return "", err
		}
		if p.matches(candidate) {
			return candidate, nil
		}
	}
	return "", ErrPolicyUnsatisfiable
}

// Validate reports domain.ErrPasswordTooWeak unless the whole candidate
// matches the pattern.
func (p *PasswordPolicy) Validate(candidate string) error {
	if !p.matches(candidate) {
		return domain.ErrPasswordTooWeak
	}
	return nil
}

func (p *PasswordPolicy) matches(candidate string) bool {
	ok, err := p.pattern.MatchString(candidate)
	return err == nil && ok
}

// draw builds one password with at least one character of each class, then
// shuffles it so the mandatory characters are not at fixed positions.
func (p *PasswordPolicy) draw() (string, error) {
	buf := make([]byte, 0, p.length)
	for _, class := range []string{lowerChars, upperChars, digitChars, symbolChars} {
		ch, err := pick(class)
		if err != nil {
			return "", err
		}
		buf = append(buf, ch)
	}
	for len(buf) < p.length {
		ch, err := pick(allChars)
		if err != nil {
			return "", err
		}
		buf = append(buf, ch)
	}

	for i := len(buf) - 1; i > 0; i-- {
		j, err := randInt(i + 1)
		if err != nil {
			return "", err
		}
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf), nil
}

func pick(set string) (byte, error) {
	i, err := randInt(len(set))
	if err != nil {
		return 0, err
	}
	return set[i], nil
}

func randInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("password policy: read random: %w", err)
	}
	return int(v.Int64()), nil
}
