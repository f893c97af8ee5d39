package main

import (
	"archive/zip"
	"fmt"
	"io"
	"net/netip"
	"os"
	"path/filepath"
	"strings"

	"github.com/meteostation/meteonode/pkg/config"
	"github.com/spf13/afero"
)

const readme = `Meteonode
=========

Install the binary to /usr/local/bin and the unit to /etc/systemd/system,
then run:

    systemctl enable --now meteonode

On first boot without stored credentials the node raises a "%s-XXXX"
access point. Join it and open http://%s to enter Wi-Fi details.

To set credentials from a shell instead:

    meteonode -wifi "ssid:password"

The default settings are in config.toml. Copy it to
~/.config/meteonode/config.toml to change them.
`

const unitTemplate = `[Unit]
Description=Meteonode environmental sensor
Wants=NetworkManager.service
After=NetworkManager.service

[Service]
ExecStart=/usr/local/bin/%s -daemon
Restart=on-failure
RestartSec=5

[Install]
WantedBy=multi-user.target
`

type zipItem struct {
	content []byte
	path    string
	arcname string
	mode    os.FileMode
}

func systemdUnit(appBin string) string {
	return fmt.Sprintf(unitTemplate, appBin)
}

func readmeText() string {
	gw := netip.MustParsePrefix(config.BaseDefaults.Network.APAddress).Addr()
	return fmt.Sprintf(readme, config.BaseDefaults.Network.APPrefix, gw)
}

// defaultConfig renders the config file a fresh node writes on first boot.
func defaultConfig() ([]byte, error) {
	fs := afero.NewMemMapFs()
	cfg, err := config.NewConfig(fs, "/", config.BaseDefaults)
	if err != nil {
		return nil, fmt.Errorf("rendering default config: %w", err)
	}
	data, err := afero.ReadFile(fs, cfg.Path())
	if err != nil {
		return nil, fmt.Errorf("reading default config: %w", err)
	}
	return data, nil
}

func releaseItems(buildDir, appBin string) ([]zipItem, error) {
	appPath := filepath.Join(buildDir, appBin)
	if _, err := os.Stat(appPath); err != nil {
		return nil, fmt.Errorf("binary '%s' not found: %w", appPath, err)
	}

	cfgData, err := defaultConfig()
	if err != nil {
		return nil, err
	}

	items := []zipItem{
		{path: appPath, arcname: appBin, mode: 0o755},
		{content: []byte(readmeText()), arcname: "README.txt", mode: 0o644},
		{content: []byte(systemdUnit(appBin)), arcname: config.AppName + ".service", mode: 0o644},
		{content: cfgData, arcname: config.CfgFile, mode: 0o644},
	}

	if license, err := os.ReadFile("LICENSE"); err == nil {
		items = append(items, zipItem{content: license, arcname: "LICENSE.txt", mode: 0o644})
	}

	return items, nil
}

func main() {
	if len(os.Args) < 4 {
		_, _ = fmt.Println("Usage: go run ./scripts/tasks/utils/makezip <build_dir> <app_bin> <zip_name>")
		os.Exit(1)
	}

	buildDir := os.Args[1]
	appBin := os.Args[2]
	zipName := os.Args[3]

	if _, err := os.Stat(buildDir); os.IsNotExist(err) {
		_, _ = fmt.Printf("The specified directory '%s' does not exist\n", buildDir)
		os.Exit(1)
	}

	items, err := releaseItems(buildDir, appBin)
	if err != nil {
		_, _ = fmt.Printf("Error collecting release files: %v\n", err)
		os.Exit(1)
	}

	zipPath := filepath.Join(buildDir, zipName)
	_ = os.Remove(zipPath)

	if err := createZipFile(zipPath, items); err != nil {
		_, _ = fmt.Printf("Error creating zip: %v\n", err)
		os.Exit(1)
	}
}

func createZipFile(zipPath string, items []zipItem) (err error) {
	zipFile, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("error creating zip file: %w", err)
	}
	defer func() {
		if closeErr := zipFile.Close(); err == nil {
			err = closeErr
		}
	}()

	zipWriter := zip.NewWriter(zipFile)
	for _, item := range items {
		if addErr := addItemToZip(zipWriter, item); addErr != nil {
			_ = zipWriter.Close()
			return fmt.Errorf("error adding %s to zip: %w", item.arcname, addErr)
		}
	}
	return zipWriter.Close()
}

func addItemToZip(zipWriter *zip.Writer, item zipItem) error {
	var src io.Reader
	if item.path != "" {
		file, err := os.Open(item.path)
		if err != nil {
			return err
		}
		defer func(file *os.File) {
			_ = file.Close()
		}(file)
		src = file
	} else {
		src = strings.NewReader(string(item.content))
	}

	header := &zip.FileHeader{
		Name:   item.arcname,
		Method: zip.Deflate,
	}
	header.SetMode(item.mode)

	writer, err := zipWriter.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(writer, src)
	return err
}
