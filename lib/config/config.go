package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/go-i2p/go-nms/lib/util"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"github.com/spf13/viper"
)

var (
	CfgFile string
	log     = logger.GetGoI2PLogger()
)

const GONMS_BASE_DIR = ".go-nms"

// InitConfig points viper at the config file, registers defaults and reads
// the file, creating the default one if it does not exist yet.
func InitConfig() error {
	if CfgFile != "" {
		viper.SetConfigFile(CfgFile)
	} else {
		viper.AddConfigPath(BuildNMSDirPath())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	return handleConfigFile()
}

func setDefaults() {
	d := Defaults()

	viper.SetDefault("nms.mtu", d.NMS.MTU)
	viper.SetDefault("nms.max_aggregation_period", d.NMS.MaxAggregationPeriod)
	viper.SetDefault("nms.retransmission_timeout", d.NMS.RetransmissionTimeout)
	viper.SetDefault("nms.max_retransmissions", d.NMS.MaxRetransmissions)
	viper.SetDefault("nms.retransmit_cycles", d.NMS.RetransmitCycles)
	viper.SetDefault("nms.sack_silence_multiple", d.NMS.SAckSilenceMultiple)
	viper.SetDefault("nms.reassembly_mode", d.NMS.ReassemblyMode)
	viper.SetDefault("nms.delivery_mode", d.NMS.DeliveryMode)
	viper.SetDefault("nms.delivery_poll_interval", d.NMS.DeliveryPollInterval)
	viper.SetDefault("nms.queue_length_decay", d.NMS.QueueLengthDecay)
	viper.SetDefault("nms.rebroadcast_rate", d.NMS.RebroadcastRate)
	viper.SetDefault("nms.default_ttl", d.NMS.DefaultTTL)
	viper.SetDefault("nms.instrumentation", d.NMS.Instrumentation)

	viper.SetDefault("encryption.mode", d.Encryption.Mode)
	viper.SetDefault("encryption.passphrase", d.Encryption.Passphrase)
	viper.SetDefault("encryption.key_file", d.Encryption.KeyFile)

	viper.SetDefault("udp.listen_address", d.UDP.ListenAddress)
	viper.SetDefault("udp.port", d.UDP.Port)
	viper.SetDefault("udp.local_address", d.UDP.LocalAddress)
	viper.SetDefault("udp.device", d.UDP.Device)
	viper.SetDefault("udp.broadcast_address", d.UDP.BroadcastAddress)
	viper.SetDefault("udp.multicast_groups", d.UDP.MulticastGroups)
	viper.SetDefault("udp.multicast_ttl", d.UDP.MulticastTTL)
	viper.SetDefault("udp.loopback", d.UDP.Loopback)
}

// SetDefaults registers the default values without reading any file.
func SetDefaults() {
	setDefaults()
}

func createDefaultConfig(defaultConfigDir string) error {
	defaultConfigFile := filepath.Join(defaultConfigDir, "config.yaml")
	if err := os.MkdirAll(defaultConfigDir, 0o755); err != nil {
		return oops.Wrapf(err, "creating config directory %s", defaultConfigDir)
	}
	if err := viper.SafeWriteConfigAs(defaultConfigFile); err != nil {
		return oops.Wrapf(err, "writing default config file %s", defaultConfigFile)
	}
	log.WithField("path", defaultConfigFile).Debug("created default configuration")
	return nil
}

func handleConfigFile() error {
	err := viper.ReadInConfig()
	if err == nil {
		log.WithField("path", viper.ConfigFileUsed()).Debug("using config file")
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	switch {
	case CfgFile != "" && (errors.As(err, &notFound) || !util.CheckFileExists(CfgFile)):
		return oops.Wrapf(err, "config file %s not found", CfgFile)
	case CfgFile == "" && errors.As(err, &notFound):
		return createDefaultConfig(BuildNMSDirPath())
	default:
		return oops.Wrapf(err, "reading config file")
	}
}

// BuildNMSDirPath returns $HOME/.go-nms.
func BuildNMSDirPath() string {
	return filepath.Join(util.UserHome(), GONMS_BASE_DIR)
}
