package main

import (
	"errors"
	"fmt"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/mod/modfile"

	"github.com/romshark/routelint/config"
	"github.com/romshark/routelint/modules/msgbroker"
)

var (
	errNoModule     = errors.New("no go.mod found")
	errConfigExists = errors.New("config file exists, use --force to overwrite")
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a routelint.yaml next to go.mod",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().Bool("yes", false, "write the defaults without asking")
	initCmd.Flags().Bool("force", false, "overwrite an existing config")
}

func runInit(cmd *cobra.Command, _ []string) error {
	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return fmt.Errorf("failed to get yes flag: %w", err)
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return fmt.Errorf("failed to get force flag: %w", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	root, modPath, err := findModule(wd)
	if err != nil {
		return err
	}
	path := filepath.Join(root, config.DefaultFileName)
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s: %w", path, errConfigExists)
	}

	conf := config.Default()
	if !yes && isTerminal(os.Stdin) {
		if err := askConfig(&conf, modPath); err != nil {
			return err
		}
	}
	if err := writeConfig(path, conf); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "wrote %s\n", path)
	return nil
}

// findModule returns the directory and module path of the
// go.mod governing dir.
func findModule(dir string) (root, modulePath string, err error) {
	for d := dir; ; {
		data, err := os.ReadFile(filepath.Join(d, "go.mod"))
		switch {
		case err == nil:
			p := modfile.ModulePath(data)
			if p == "" {
				return "", "", fmt.Errorf("%s: missing module directive", filepath.Join(d, "go.mod"))
			}
			return d, p, nil
		case !errors.Is(err, fs.ErrNotExist):
			return "", "", err
		}
		parent := filepath.Dir(d)
		if parent == d {
			return "", "", fmt.Errorf("%s: %w", dir, errNoModule)
		}
		d = parent
	}
}

func writeConfig(path string, conf config.Config) error {
	if err := conf.Validate(); err != nil {
		return err
	}
	if err := conf.Report.NATS.Validate(); err != nil {
		return err
	}
	data, err := conf.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// askConfig fills conf from an interactive form.
func askConfig(conf *config.Config, modPath string) error {
	registrationFuncs := strings.Join(conf.RegistrationFuncs, ", ")
	methodPrefixes := strings.Join(conf.MethodPrefixes, ", ")
	nonBindable := strings.Join(conf.ExtraNonBindableTypes, ", ")
	publish := false
	natsURL := "nats://127.0.0.1:4222"
	subject := msgbroker.DefaultSubjectPrefix

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("routelint").
				Description("Configuring module "+modPath),
			huh.NewInput().
				Title("Registration functions").
				Description("Function names whose first string argument is a route").
				Value(&registrationFuncs).
				Validate(validateIdentList),
			huh.NewInput().
				Title("Method prefixes").
				Description("Handler method prefixes declaring attribute routes").
				Value(&methodPrefixes).
				Validate(validateIdentList),
			huh.NewInput().
				Title("Page type prefix").
				Value(&conf.PageTypePrefix).
				Validate(validateIdent),
			huh.NewInput().
				Title("Extra non-bindable types").
				Description("Fully qualified, e.g. example.com/app.Session").
				Value(&nonBindable),
			huh.NewSelect[config.FailOn]().
				Title("Fail on").
				Options(
					huh.NewOption("errors", config.FailOnError),
					huh.NewOption("warnings and errors", config.FailOnWarning),
				).
				Value(&conf.FailOn),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Publish reports to NATS JetStream?").
				Value(&publish),
		),
		huh.NewGroup(
			huh.NewInput().Title("NATS URL").Value(&natsURL),
			huh.NewInput().Title("Subject prefix").Value(&subject),
		).WithHideFunc(func() bool { return !publish }),
		huh.NewGroup(
			huh.NewSelect[config.StoreKind]().
				Title("Report store").
				Description("Skips analysis of unchanged packages").
				Options(
					huh.NewOption("none", config.StoreNone),
					huh.NewOption("disk (user cache dir)", config.StoreDisk),
					huh.NewOption("NATS key-value bucket", config.StoreNATS),
				).
				Value(&conf.Store.Kind),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	conf.RegistrationFuncs = splitList(registrationFuncs)
	conf.MethodPrefixes = splitList(methodPrefixes)
	conf.ExtraNonBindableTypes = splitList(nonBindable)
	if publish {
		conf.Report.NATS = &config.NATS{URL: natsURL, Subject: subject}
	}
	return nil
}

// splitList splits a comma or space separated list.
func splitList(s string) []string {
	out := []string{}
	for _, f := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	}) {
		out = append(out, f)
	}
	return out
}

func validateIdent(s string) error {
	if !token.IsIdentifier(s) {
		return fmt.Errorf("%q: %w", s, config.ErrInvalidIdentifier)
	}
	return nil
}

func validateIdentList(s string) error {
	for _, f := range splitList(s) {
		if err := validateIdent(f); err != nil {
			return err
		}
	}
	return nil
}
