package cli

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"
)

// userField is one question of the registration form.
type userField struct {
	key      string
	label    string
	hint     string
	pattern  *regexp.Regexp
	required bool
	secret   bool
}

var (
	namePattern     = regexp.MustCompile(`^[a-zA-Z][a-zA-Z]{2,}$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]{2,}$`)
	passwordPattern = regexp.MustCompile(`^[a-zA-Z0-9_%\-&$]{6,}$`)
	emailPattern    = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+`)
	phonePattern    = regexp.MustCompile(`^\d*$`)
)

const nameHint = "\t- insert only letters"

var userFields = []userField{
	{"username", "Username (Required)", "\t- start with letter\n\t- insert only numbers and letters", usernamePattern, true, false},
	{"first_name", "First Name (Required)", nameHint, namePattern, true, false},
	{"last_name", "Last Name", nameHint, namePattern, false, false},
	{"password", "Password (Required)", "\t- insert only the characters: [letters, numbers, _, %, &, -, $]\n\t- must be at least 6 characters", passwordPattern, true, true},
	{"email", "Email (Required)", "\t- follow the format: <login>@<domain>\n\t\te.g. john@test.com", emailPattern, true, false},
	{"phone", "Phone", "\t- insert only numbers", phonePattern, false, false},
	{"city", "City", nameHint, namePattern, false, false},
	{"state", "State", nameHint, namePattern, false, false},
	{"country", "Country", nameHint, namePattern, false, false},
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage NApps server users",
}

var usersRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new user on the NApps server",
	Args:  cobra.NoArgs,
	RunE:  runRegister,
}

func init() {
	usersCmd.AddCommand(usersRegisterCmd)
	rootCmd.AddCommand(usersCmd)
}

func runRegister(cmd *cobra.Command, args []string) error {
	w := cmd.ErrOrStderr()
	fmt.Fprintln(w, "Welcome to the user registration process.")
	fmt.Fprintln(w, "To continue you must fill the following fields.")

	user := make(map[string]string, len(userFields))
	for _, f := range userFields {
		value, err := askField(f)
		if err != nil {
			return err
		}
		if value != "" {
			user[f.key] = value
		}
	}

	result, err := env.registry().RegisterUser(cmd.Context(), user)
	if err != nil {
		return err
	}
	fmt.Fprintln(env.out, result)
	return nil
}

// askField asks f until the answer fits its pattern. Passwords are typed
// twice.
func askField(f userField) (string, error) {
	label := fmt.Sprintf("Insert the field using the pattern below:\n%s\n%s: ", f.hint, f.label)
	for {
		value, err := env.prompt.Ask(label, f.required, nil, f.secret)
		if err != nil || value == "" {
			return value, err
		}
		if !f.pattern.MatchString(value) {
			fmt.Fprintf(env.prompt.out, "The content must fit the pattern: %s\n\n", f.hint)
			continue
		}
		if f.secret {
			again, err := env.prompt.Password("Confirm your password: ")
			if err != nil {
				return "", err
			}
			if again != value {
				fmt.Fprintln(env.prompt.out, "Password does not match")
				continue
			}
		}
		return value, nil
	}
}
