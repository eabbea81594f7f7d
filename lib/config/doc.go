// Package config loads nmsd configuration with viper.
//
// # Sources
//
// Values come, in increasing priority, from the built-in defaults (see
// Defaults), the YAML config file and explicit viper overrides such as
// command-line flags. The config file lives at $HOME/.go-nms/config.yaml
// unless CfgFile names another one; a missing default file is created from
// the defaults on first start.
//
// # Sections
//
//   - nms: protocol timing and delivery behaviour of the message service
//   - encryption: how the group key is obtained (none, passphrase, keyfile)
//   - udp: the UDP interface nmsd binds
//
// Use NewNMSConfigFromViper to read the effective configuration and
// (*NMSConfig).Validate before handing it to the service.
package config
