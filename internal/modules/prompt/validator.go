// Package prompt collects and validates option parameters interactively.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/aristath/qpricing/internal/domain"
)

// ErrNoInput is returned when input ends before every parameter was read
var ErrNoInput = errors.New("input ended before all parameters were entered")

// Banner is printed before the first prompt
const Banner = "Welcome to Quantum Pricing Power!\n\n"

const (
	optionPrompt = "Enter your option (Call /Put):"
	optionRetry  = "Oops! The option was wrong. Try again...\nEnter your option (call / put): "
)

// field describes one numeric prompt and its retry text
type field struct {
	prompt string
	retry  string
}

func newField(label string) field {
	return field{
		prompt: "Enter " + label + ":",
		retry:  "Oops! The " + label + " was wrong. Try again...\nEnter " + label + ": ",
	}
}

var (
	spotField       = newField("spot price")
	volatilityField = newField("volatility")
	rateField       = newField("interest rate")
	strikeField     = newField("strike price")
	daysField       = field{
		prompt: "Enter days to maturity:",
		retry:  "Oops! Days to maturity was wrong. Try again...\nEnter days to maturity: ",
	}
)

// Validator reads answers line by line and re-prompts until each one parses
// and is in range
type Validator struct {
	in  *bufio.Reader
	out io.Writer
}

// NewValidator creates a validator reading from in and prompting on out
func NewValidator(in io.Reader, out io.Writer) *Validator {
	return &Validator{in: bufio.NewReader(in), out: out}
}

// Collect prompts for every parameter in order and returns them validated
func (v *Validator) Collect() (domain.OptionParameters, error) {
	var p domain.OptionParameters

	if _, err := io.WriteString(v.out, Banner); err != nil {
		return p, err
	}

	optionType, err := v.optionType()
	if err != nil {
		return p, err
	}
	p.Type = optionType
	fmt.Fprintf(v.out, "Option selected: %s \n\n", optionType)

	positive := func(x float64) bool { return x > 0 }
	finite := func(float64) bool { return true }

	if p.Spot, err = ask(v, spotField, parseFloat, positive); err != nil {
		return p, err
	}
	if p.Volatility, err = ask(v, volatilityField, parseFloat, positive); err != nil {
		return p, err
	}
	if p.Rate, err = ask(v, rateField, parseFloat, finite); err != nil {
		return p, err
	}
	if p.Days, err = ask(v, daysField, strconv.Atoi, func(d int) bool { return d >= 0 }); err != nil {
		return p, err
	}
	if p.Strike, err = ask(v, strikeField, parseFloat, positive); err != nil {
		return p, err
	}

	return p, p.Validate()
}

func (v *Validator) optionType() (domain.OptionType, error) {
	text := optionPrompt
	for {
		line, err := v.readLine(text)
		if err != nil {
			return "", err
		}
		if t, err := domain.ParseOptionType(line); err == nil {
			return t, nil
		}
		text = optionRetry
	}
}

// ask repeats the field prompt until parse succeeds and ok accepts the value
func ask[T any](v *Validator, f field, parse func(string) (T, error), ok func(T) bool) (T, error) {
	text := f.prompt
	for {
		line, err := v.readLine(text)
		if err != nil {
			var zero T
			return zero, err
		}
		if value, err := parse(line); err == nil && ok(value) {
			return value, nil
		}
		text = f.retry
	}
}

// readLine writes the prompt and returns the next trimmed line
func (v *Validator) readLine(prompt string) (string, error) {
	if _, err := io.WriteString(v.out, prompt); err != nil {
		return "", err
	}
	line, err := v.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrNoInput
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func parseFloat(s string) (float64, error) {
	x, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return x, nil
}
