package bugtool

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ghodss/yaml"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sidkik/snowxfer/cmd/util"
	"github.com/sidkik/snowxfer/pkg/config"
	"github.com/sidkik/snowxfer/pkg/device"
	"github.com/sidkik/snowxfer/pkg/errors"
	"github.com/sidkik/snowxfer/pkg/runner"
	"github.com/sidkik/snowxfer/pkg/version"
)

// Mocked for unit testing.
var (
	fs                   = afero.NewOsFs()
	stdout     io.Writer = os.Stdout
	newRunner            = func() runner.Runner { return runner.New() }
	loadConfig           = config.Load
	now                  = time.Now
)

const redacted = "REDACTED"

// New creates a new `bug-tool` command.
func New() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "bug-tool",
		Short: "Generate an archive for debugging snowxfer",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(context.Background(), out); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "path for archive")
	return cmd
}

func run(ctx context.Context, out string) error {
	tmpdir, err := afero.TempDir(fs, "", "snowxfer-bug-tool")
	if err != nil {
		return errors.NewFriendlyError("Failed to create out directory:\n%s", err)
	}
	defer func() {
		if err := fs.RemoveAll(tmpdir); err != nil {
			log.WithError(err).WithField("path", tmpdir).Warn("Failed to remove temporary directory")
		}
	}()

	setupInfo(ctx, tmpdir)

	if out == "" {
		out = fmt.Sprintf("snowxfer-bug-info-%s.tar.gz",
			now().Format("Jan_02_2006-15-04-05"))
	}
	if err := tarDirectory(tmpdir, out); err != nil {
		return errors.NewFriendlyError("Failed to tar:\n%s", err)
	}

	msg := `Created bug information archive at '%s'.
The archive contains:
 * The effective snowxfer configuration.
 * The Snowball Edge device registry, with unlock codes removed.
 * The AWS CLI config file. The credentials file is never included.
 * The version of snowxfer and of the Snowball Edge client.
`
	fmt.Fprintf(stdout, msg, out)
	return nil
}

func setupInfo(ctx context.Context, root string) {
	cfg, err := loadConfig(config.User{})
	if err != nil {
		log.WithError(err).Error("Failed to load user config")
		return
	}

	if err := setupConfig(root, cfg); err != nil {
		log.WithError(err).Warn("Failed to setup config")
	}

	if err := setupRegistry(root, cfg.DeviceRegistryPath); err != nil {
		log.WithError(err).Warn("Failed to setup device registry")
	}

	if err := copyFile(cfg.ClientConfigPath, filepath.Join(root, "aws-config")); err != nil {
		log.WithError(err).Warn("Failed to setup AWS CLI config")
	}

	if err := setupVersion(ctx, root); err != nil {
		log.WithError(err).Warn("Failed to setup version info")
	}
}

func setupConfig(root string, cfg config.User) error {
	cfgBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}
	return afero.WriteFile(fs, filepath.Join(root, "config.yaml"), cfgBytes, 0644)
}

// setupRegistry copies the device registry without the unlock codes, which
// grant access to the device.
func setupRegistry(root, path string) error {
	contents, err := afero.ReadFile(fs, path)
	if err != nil {
		return errors.WithContext(err, "read")
	}

	var registry map[string]interface{}
	if err := json.Unmarshal(contents, &registry); err != nil {
		return errors.WithContext(err, "parse")
	}

	if profiles, ok := registry["profiles"].(map[string]interface{}); ok {
		for _, profile := range profiles {
			if fields, ok := profile.(map[string]interface{}); ok {
				if _, ok := fields["unlockCode"]; ok {
					fields["unlockCode"] = redacted
				}
			}
		}
	}

	redactedBytes, err := json.MarshalIndent(registry, "", "  ")
	if err != nil {
		return errors.WithContext(err, "marshal")
	}
	return afero.WriteFile(fs, filepath.Join(root, "device-registry.json"), redactedBytes, 0644)
}

func setupVersion(ctx context.Context, root string) error {
	outdir := filepath.Join(root, "version")
	if err := fs.Mkdir(outdir, 0755); err != nil {
		return errors.WithContext(err, "mkdir")
	}

	localVersion := fmt.Sprintf("snowxfer version: %s\n", version.Version)
	if err := afero.WriteFile(fs, filepath.Join(outdir, "snowxfer"), []byte(localVersion), 0644); err != nil {
		return errors.WithContext(err, "write")
	}

	clientVersion, err := device.CheckClientVersion(ctx, newRunner(), config.Defaults().MinClientVersion)
	if err != nil {
		return errors.WithContext(err, "get client version")
	}
	clientOut := fmt.Sprintf("client version: %s\n", clientVersion)
	return afero.WriteFile(fs, filepath.Join(outdir, "client"), []byte(clientOut), 0644)
}

func copyFile(src, dst string) error {
	in, err := fs.Open(src)
	if err != nil {
		return errors.WithContext(err, "open")
	}
	defer in.Close()

	out, err := fs.Create(dst)
	if err != nil {
		return errors.WithContext(err, "open destination")
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return errors.WithContext(err, "copy")
	}
	return nil
}

func tarDirectory(src, outPath string) error {
	out, err := fs.Create(outPath)
	if err != nil {
		return errors.WithContext(err, "open destination")
	}
	defer out.Close()

	gzw := gzip.NewWriter(out)
	defer gzw.Close()

	tw := tar.NewWriter(gzw)
	defer tw.Close()

	return afero.Walk(fs, src, func(file string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		header, err := tar.FileInfoHeader(fi, fi.Name())
		if err != nil {
			return errors.WithContext(err, fmt.Sprintf("make header %s", file))
		}

		relPath, err := filepath.Rel(src, file)
		if err != nil {
			return errors.WithContext(err, fmt.Sprintf("get relative path of %s", file))
		}

		header.Name = filepath.ToSlash(filepath.Join("snowxfer-bug-info", relPath))
		if err := tw.WriteHeader(header); err != nil {
			return errors.WithContext(err, fmt.Sprintf("write %s header", file))
		}

		if !fi.Mode().IsRegular() {
			return nil
		}

		f, err := fs.Open(file)
		if err != nil {
			return errors.WithContext(err, fmt.Sprintf("open %s", file))
		}
		defer f.Close()

		if _, err := io.Copy(tw, f); err != nil {
			return errors.WithContext(err, fmt.Sprintf("copy %s", file))
		}
		return nil
	})
}
