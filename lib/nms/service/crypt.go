package service

import (
	"encoding/binary"

	"github.com/go-i2p/go-nms/lib/config"
	gaes "github.com/go-i2p/go-nms/lib/crypto/aes"
	"github.com/go-i2p/go-nms/lib/nms/message"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// checksumLen is the size of the checksum carried inside the encrypted
// metadata blob.
const checksumLen = 4

func loadKey(e config.EncryptionConfig) (*gaes.GroupKey, error) {
	switch e.Mode {
	case config.EncryptionPassphrase:
		k, err := gaes.NewGroupKeyFromPassphrase(e.Passphrase)
		if err != nil {
			return nil, oops.Wrapf(err, "deriving group key")
		}
		return k, nil
	case config.EncryptionKeyFile:
		return gaes.LoadGroupKeyFile(e.KeyFile)
	default:
		return nil, nil
	}
}

func (s *Service) currentKey() *gaes.GroupKey {
	s.keyMu.RLock()
	defer s.keyMu.RUnlock()
	return s.key
}

// ChangeEncryptionKey replaces the group key. An empty key disables
// encryption.
func (s *Service) ChangeEncryptionKey(key []byte) error {
	var k *gaes.GroupKey
	if len(key) > 0 {
		var err error
		if k, err = gaes.NewGroupKey(key); err != nil {
			return err
		}
	}
	s.keyMu.Lock()
	s.key = k
	s.keyMu.Unlock()

	hash := ""
	if k != nil {
		hash = k.Hash()[:16]
	}
	log.WithFields(logger.Fields{
		"at":   "(Service) ChangeEncryptionKey",
		"hash": hash,
	}).Info("group key changed")
	return nil
}

// EncryptionKeyHash returns the hex SHA-256 of the group key, or "" when
// encryption is off.
func (s *Service) EncryptionKeyHash() string {
	if k := s.currentKey(); k != nil {
		return k.Hash()
	}
	return ""
}

// preparePayload checksums the plaintext and, unless disabled, encrypts
// it. Encrypted payloads carry the checksum at the front of the encrypted
// metadata blob and leave the header checksum zero.
func (s *Service) preparePayload(mi MessageInfo) (payload, error) {
	p := payload{
		msgType:     mi.MsgType,
		metadata:    mi.Metadata,
		data:        mi.Data,
		checksummed: true,
		checksum:    message.Checksum(mi.Metadata, mi.Data),
	}
	key := s.currentKey()
	if key == nil || mi.hasHint(HintNoEncrypt) {
		return p, nil
	}

	plainMeta := make([]byte, checksumLen+len(mi.Metadata))
	binary.BigEndian.PutUint32(plainMeta, p.checksum)
	copy(plainMeta[checksumLen:], mi.Metadata)

	meta, err := key.Encrypt(plainMeta)
	if err != nil {
		return payload{}, oops.Wrapf(err, "encrypting metadata")
	}
	data, err := key.Encrypt(mi.Data)
	if err != nil {
		return payload{}, oops.Wrapf(err, "encrypting data")
	}
	p.metadata = meta
	p.data = data
	p.encrypted = true
	p.checksum = 0
	return p, nil
}

// openPayload reverses preparePayload on a complete message and verifies
// its checksum.
func (s *Service) openPayload(msg *message.NetworkMessage) ([]byte, []byte, error) {
	if !msg.Encrypted {
		if msg.Checksummed && message.Checksum(msg.Metadata, msg.Data) != msg.Checksum {
			return nil, nil, ErrChecksumMismatch
		}
		return msg.Metadata, msg.Data, nil
	}

	key := s.currentKey()
	if key == nil {
		return nil, nil, ErrNoEncryptionKey
	}
	plainMeta, err := key.Decrypt(msg.Metadata)
	if err != nil || len(plainMeta) < checksumLen {
		return nil, nil, oops.Wrapf(ErrDecryptFailed, "metadata")
	}
	data, err := key.Decrypt(msg.Data)
	if err != nil {
		return nil, nil, oops.Wrapf(ErrDecryptFailed, "data")
	}
	want := binary.BigEndian.Uint32(plainMeta)
	meta := plainMeta[checksumLen:]
	if message.Checksum(meta, data) != want {
		return nil, nil, ErrChecksumMismatch
	}
	return meta, data, nil
}
