package cmd

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/supabase/siwx/internal/siwx"
)

// signedMessageFlags are the flags describing a message and its signature.
type signedMessageFlags struct {
	message     string
	messageFile string
	signature   string
	chainID     string
}

func (f *signedMessageFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.message, "message", "", "the signed message text")
	cmd.Flags().StringVar(&f.messageFile, "message-file", "", "read the signed message from a file with LF line endings, - for stdin")
	cmd.Flags().StringVar(&f.signature, "signature", "", "the signature produced by the wallet")
	cmd.Flags().StringVar(&f.chainID, "chain-id", "", "chain identifier, required when the message omits the namespace")
	_ = cmd.MarkFlagRequired("signature")
}

func (f *signedMessageFlags) readMessage(stdin io.Reader) (string, error) {
	switch {
	case f.message != "" && f.messageFile != "":
		return "", errors.New("use only one of --message and --message-file")

	case f.message != "":
		return f.message, nil

	case f.messageFile == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", errors.Wrap(err, "unable to read message from stdin")
		}
		return strings.TrimRight(string(data), "\r\n"), nil

	case f.messageFile != "":
		data, err := os.ReadFile(f.messageFile)
		if err != nil {
			return "", errors.Wrapf(err, "unable to read message file %s", f.messageFile)
		}
		return strings.TrimRight(string(data), "\r\n"), nil

	default:
		return "", errors.New("one of --message or --message-file is required")
	}
}

// session builds the session for the signed message. The message data is
// taken from the message text itself.
func (f *signedMessageFlags) session(stdin io.Reader) (siwx.Session, error) {
	raw, err := f.readMessage(stdin)
	if err != nil {
		return siwx.Session{}, err
	}

	parsed, err := siwx.ParseMessage(raw)
	if err != nil {
		return siwx.Session{}, errors.Wrap(err, "unable to parse message")
	}

	data := parsed.Data
	if f.chainID != "" {
		if _, reference := siwx.SplitChainID(f.chainID); reference != data.ChainID && f.chainID != data.ChainID {
			return siwx.Session{}, errors.Errorf("--chain-id %s does not match the message chain %s", f.chainID, data.ChainID)
		}
		data.ChainID = f.chainID
	}

	if !strings.Contains(data.ChainID, ":") {
		return siwx.Session{}, errors.Errorf("chain %q has no namespace, pass --chain-id", data.ChainID)
	}

	return siwx.Session{
		Data:      data,
		Message:   raw,
		Signature: f.signature,
	}, nil
}
