package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sentra-video/sentra/internal/auth"
	"github.com/sentra-video/sentra/internal/storage"
	"github.com/sentra-video/sentra/internal/validation"
	"github.com/sentra-video/sentra/internal/vault"
	"github.com/sentra-video/sentra/models"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load cameras and users from a YAML fixture",
	Long: `Load cameras and users from a YAML fixture into the metadata store.

Camera passwords are sealed with the configured encryption key and user
passwords are bcrypt hashed before anything is written. The server picks
seeded cameras up on its next start.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "seed.yaml", "fixture file to load")
}

// seedFixture is the on-disk fixture document.
type seedFixture struct {
	Cameras []seedCamera `yaml:"cameras"`
	Users   []seedUser   `yaml:"users"`
}

type seedCamera struct {
	Name       string                 `yaml:"name"`
	Location   string                 `yaml:"location"`
	IngressURL string                 `yaml:"ingressUrl"`
	Username   string                 `yaml:"username"`
	Password   string                 `yaml:"password"`
	Tags       []string               `yaml:"tags"`
	Protocols  models.ProtocolFlags   `yaml:"protocols"`
	Grid       models.GridPosition    `yaml:"grid"`
	Recording  models.RecordingPolicy `yaml:"recording"`
	ANPR       models.ANPRPolicy      `yaml:"anpr"`
}

type seedUser struct {
	Email    string   `yaml:"email"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	Roles    []string `yaml:"roles"`
}

func runSeed(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(seedFile)
	if err != nil {
		return fmt.Errorf("failed to read fixture: %w", err)
	}

	var fixture seedFixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return fmt.Errorf("failed to parse fixture: %w", err)
	}

	store, err := storage.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close() //nolint:errcheck

	secrets, err := vault.New([]byte(cfg.Security.EncryptionKey))
	if err != nil {
		return fmt.Errorf("failed to initialize credential vault: %w", err)
	}

	validator := validation.New()
	now := time.Now()

	for _, sc := range fixture.Cameras {
		cam := &models.Camera{
			ID:         models.GenerateID("camera"),
			Name:       sc.Name,
			Location:   sc.Location,
			IngressURL: sc.IngressURL,
			Username:   sc.Username,
			Tags:       sc.Tags,
			Protocols:  sc.Protocols,
			Grid:       sc.Grid,
			Recording:  sc.Recording,
			ANPR:       sc.ANPR,
			Status:     models.CameraStatusOffline,
			Created:    now,
			Modified:   now,
		}
		cam.NormalizeTags()

		if verrs := validator.ValidateCameraFields(cam); len(verrs) > 0 {
			return fmt.Errorf("invalid camera %q: %s: %s", sc.Name, verrs[0].Field, verrs[0].Message)
		}

		if sc.Password != "" {
			sealed, err := secrets.Seal(sc.Password)
			if err != nil {
				return fmt.Errorf("failed to seal credentials for %q: %w", sc.Name, err)
			}
			cam.SealedPassword = sealed
		}

		if err := store.SaveCamera(cam); err != nil {
			return fmt.Errorf("failed to save camera %q: %w", sc.Name, err)
		}
		fmt.Printf("camera %s (%s)\n", cam.ID, cam.Name)
	}

	for _, su := range fixture.Users {
		user := &models.User{
			ID:       models.GenerateID("user"),
			Email:    su.Email,
			Username: su.Username,
			Roles:    su.Roles,
			Enabled:  true,
			Created:  now,
		}
		if len(user.Roles) == 0 {
			user.Roles = []string{models.RoleViewer}
		}

		if verrs := validator.ValidateUserFields(user); len(verrs) > 0 {
			return fmt.Errorf("invalid user %q: %s: %s", su.Email, verrs[0].Field, verrs[0].Message)
		}
		if verrs := validator.ValidatePassword(su.Password); len(verrs) > 0 {
			return fmt.Errorf("invalid user %q: %s", su.Email, verrs[0].Message)
		}

		hash, err := auth.HashPassword(su.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password for %q: %w", su.Email, err)
		}
		user.PasswordHash = hash

		if err := store.SaveUser(user); err != nil {
			return fmt.Errorf("failed to save user %q: %w", su.Email, err)
		}
		fmt.Printf("user %s (%s)\n", user.ID, user.Email)
	}

	fmt.Printf("seeded %d cameras, %d users\n", len(fixture.Cameras), len(fixture.Users))
	return nil
}
