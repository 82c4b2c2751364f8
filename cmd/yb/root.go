package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/douzebis/yb/blobfs"
	"github.com/douzebis/yb/config"
	"github.com/douzebis/yb/device"
)

var log = logrus.New()

var rootCmd = &cobra.Command{
	Use:   "yb",
	Short: "Store named blobs in a security token's PIV data objects",
	Long: `yb turns the custom PIV data objects of a hardware security token into a
small filesystem of named blobs. Blobs persist across power cycles, survive
interrupted writes, and can be stored encrypted against an EC key that never
leaves the token.

Select a device with --reader/--serial for hardware, or --emulator PATH for a
file-backed emulated token.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetOutput(os.Stderr)
		if viper.GetBool("verbose") {
			log.SetLevel(logrus.DebugLevel)
		} else {
			log.SetLevel(logrus.WarnLevel)
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("reader", "", "PC/SC reader name of the hardware token")
	pf.String("serial", "", "hardware serial of the token")
	pf.String("emulator", "", "path to a file-backed emulated token")
	pf.String("pin", "", "user PIN")
	pf.String("key", "", "management key (hex); omit for PIN-protected mode")
	pf.BoolP("verbose", "v", false, "enable debug output")

	_ = viper.BindPFlags(pf)
	viper.SetEnvPrefix("YB")
	viper.AutomaticEnv()

	viper.SetConfigName(".yb")
	viper.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}
	if err := viper.ReadInConfig(); err == nil {
		log.Debugf("using config file %s", viper.ConfigFileUsed())
	}
}

// loadConfig assembles and validates the session configuration from flags,
// environment, and config file.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	cfg.Reader = viper.GetString("reader")
	cfg.Serial = viper.GetString("serial")
	cfg.EmulatorPath = viper.GetString("emulator")
	cfg.PIN = viper.GetString("pin")
	cfg.ManagementKey = viper.GetString("key")
	if err := config.ValidateConfig(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openDevice builds the Device selected by the configuration. The returned
// closer is nil for hardware devices.
func openDevice(cfg config.Config) (device.Device, io.Closer, error) {
	if cfg.EmulatorPath != "" {
		pin := cfg.PIN
		if pin == "" {
			pin = device.DefaultPIN
		}
		mgmt, _ := hex.DecodeString(cfg.ManagementKey)
		dev, err := device.OpenBoltDevice(cfg.EmulatorPath, pin, mgmt)
		if err != nil {
			return nil, nil, err
		}
		log.Debugf("using emulated token at %s", cfg.EmulatorPath)
		return dev, dev, nil
	}
	return device.NewPivTool(device.Handle{Reader: cfg.Reader, Serial: cfg.Serial}), nil, nil
}

// session bundles everything a command needs to talk to one token.
type session struct {
	*blobfs.Session
	cfg    config.Config
	dev    device.Device
	closer io.Closer
}

// newSession opens the configured device and wraps it in a blobfs session.
func newSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	dev, closer, err := openDevice(cfg)
	if err != nil {
		return nil, err
	}
	return &session{
		Session: blobfs.New(dev, nil),
		cfg:     cfg,
		dev:     dev,
		closer:  closer,
	}, nil
}

// auth builds the administrative credential of the session.
func (s *session) auth() device.Auth {
	mgmt, _ := hex.DecodeString(s.cfg.ManagementKey)
	return device.Auth{ManagementKey: mgmt, PIN: s.cfg.PIN}
}

// close releases the device if it needs releasing.
func (s *session) close() {
	if s.closer != nil {
		if err := s.closer.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: close device: %v\n", err)
		}
	}
}

// generateKey creates a key pair in the slot on whichever device variant the
// session runs against.
func (s *session) generateKey(slot device.KeySlot, subject string) error {
	switch dev := s.dev.(type) {
	case *device.BoltDevice:
		return dev.GenerateKey(slot)
	case *device.Emulator:
		return dev.GenerateKey(slot)
	case *device.PivTool:
		return dev.GenerateKey(slot, subject, s.auth())
	default:
		return fmt.Errorf("device does not support key generation")
	}
}

