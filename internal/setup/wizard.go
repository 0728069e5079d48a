package setup

/*
	Relay Setup Wizard
	Asks, per fixed service, whether it should run a local GGUF model or a
	cloud model, and records the answer in the services file. Runs before
	the gateway binds, the registry is sealed once serving starts so this
	is the only place services change.
*/

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mineradorx/relay/internal/config"
	"github.com/mineradorx/relay/internal/core/constants"
	"github.com/mineradorx/relay/internal/core/domain"
)

const (
	optionLocal = "local"
	optionCloud = "cloud"
	optionAbort = "abort"
)

var (
	ErrNoLocalModels     = errors.New("no local .gguf models found")
	ErrMissingCredential = errors.New("cloud API key is not set")
	ErrAborted           = errors.New("setup aborted")
)

type Wizard struct {
	prompter      Prompter
	credential    func() string
	modelsDir     string
	credentialEnv string
}

// NewWizard reads the cloud key through credential so a key added to the
// environment mid-setup is picked up on the next attempt
func NewWizard(prompter Prompter, modelsDir, credentialEnv string, credential func() string) *Wizard {
	return &Wizard{
		prompter:      prompter,
		modelsDir:     modelsDir,
		credentialEnv: credentialEnv,
		credential:    credential,
	}
}

// NeedsSetup loads the services file, a missing file or a missing fixed
// service means the wizard has to run
func NeedsSetup(path string) (*config.ServicesFile, bool, error) {
	sf, err := config.LoadServices(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config.NewDefaultServicesFile(), true, nil
		}
		return nil, false, err
	}
	return sf, len(sf.Missing()) > 0, nil
}

// Run configures every fixed service in order and updates sf in place.
// Nothing is persisted, the caller saves on success.
func (w *Wizard) Run(sf *config.ServicesFile) error {
	for _, name := range domain.KnownServices() {
		desc, err := w.configure(name, sf.Services[string(name)])
		if err != nil {
			return fmt.Errorf("configuring %s: %w", name, err)
		}
		sf.Set(desc)
		w.prompter.Info(fmt.Sprintf("Service '%s' will use %s model %s", name, desc.Kind, desc.ModelLabel()))
	}
	return nil
}

func (w *Wizard) configure(name domain.ServiceName, current config.ServiceEntry) (*domain.ServiceDescriptor, error) {
	currentType := current.Type
	if currentType == "" {
		currentType = "not set"
	}
	w.prompter.Info(fmt.Sprintf("Configuring service '%s' (currently: %s)", name, currentType))

	missingKey := false
	for {
		choice, err := w.prompter.Select(fmt.Sprintf("Backend for '%s'", name),
			[]string{optionLocal, optionCloud, optionAbort}, current.Type)
		if err != nil {
			return nil, err
		}

		switch choice {
		case optionLocal:
			path, err := w.chooseLocalModel()
			if err != nil {
				return nil, err
			}
			return &domain.ServiceDescriptor{Name: name, Kind: domain.BackendLocal, LocalPath: path}, nil

		case optionCloud:
			if w.credential() == "" {
				missingKey = true
				w.prompter.Warn(fmt.Sprintf("%s is not set. Add it to .env to use cloud models.", w.credentialEnv))
				continue
			}
			id, err := w.chooseCloudModel(name, current.CloudModelID)
			if err != nil {
				return nil, err
			}
			return &domain.ServiceDescriptor{Name: name, Kind: domain.BackendCloud, CloudModelID: id}, nil

		case optionAbort:
			if missingKey {
				return nil, fmt.Errorf("%w: set %s", ErrMissingCredential, w.credentialEnv)
			}
			return nil, ErrAborted

		default:
			w.prompter.Warn("Invalid choice.")
		}
	}
}

func (w *Wizard) chooseLocalModel() (string, error) {
	models, err := DiscoverModels(w.modelsDir)
	if err != nil {
		return "", err
	}

	choice, err := w.prompter.Select("Model file", models, "")
	if err != nil {
		return "", err
	}
	for _, m := range models {
		if m == choice {
			return filepath.Join(w.modelsDir, m), nil
		}
	}
	return "", fmt.Errorf("unknown model %q", choice)
}

func (w *Wizard) chooseCloudModel(name domain.ServiceName, previous string) (string, error) {
	for {
		id, err := w.prompter.Text(fmt.Sprintf("Cloud model ID for '%s'", name), previous)
		if err != nil {
			return "", err
		}
		id = strings.TrimSpace(id)
		if id == "" {
			id = previous
		}
		if id != "" {
			return id, nil
		}
		w.prompter.Warn("A model ID is required, e.g. mistralai/mistral-7b-instruct")
	}
}

// DiscoverModels lists the .gguf files in dir by name, sorted
func DiscoverModels(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: directory %s does not exist", ErrNoLocalModels, dir)
		}
		return nil, fmt.Errorf("reading models directory: %w", err)
	}

	var models []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), constants.LocalModelExtension) {
			continue
		}
		models = append(models, e.Name())
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoLocalModels, dir)
	}
	sort.Strings(models)
	return models, nil
}
