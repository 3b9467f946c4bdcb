package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"value-ledger/internal/adapter/http/dto"
	"value-ledger/internal/core/domain"
	"value-ledger/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// signingTTL bounds how long the CLI keeps a key unlocked.
const signingTTL = time.Minute

func keygenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate an ed25519 key pair (base64 seed and public key)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, pub, err := service.GenerateKeyPair()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]string{
				"seed":       seed,
				"public_key": pub,
			})
		},
	}
}

func hashKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-key <authority-key>",
		Short: "Hash an authority key for authority.key_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := service.NewArgon2HashService().Hash(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

// signCommands produces request bodies signed offline with a seed.
func signCommands() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign ledger entries and session challenges offline",
	}
	cmd.AddCommand(signEntryCommand())
	cmd.AddCommand(signSessionCommand())
	return cmd
}

// unlock opens a signing session from --seed or VLG_SIGNING_SEED.
func unlock(accountID, seed string) (*domain.SigningSession, error) {
	if seed == "" {
		seed = os.Getenv("VLG_SIGNING_SEED")
	}
	if seed == "" {
		return nil, fmt.Errorf("a signing seed is required (--seed or VLG_SIGNING_SEED)")
	}
	key, err := service.ParseSigningSeed(seed)
	if err != nil {
		return nil, err
	}
	return domain.NewSigningSession(accountID, key, time.Now(), signingTTL), nil
}

func signEntryCommand() *cobra.Command {
	var (
		seed      string
		sender    string
		receiver  string
		amount    string
		kind      string
		nonce     string
		id        string
		timestamp int64
	)

	cmd := &cobra.Command{
		Use:   "entry",
		Short: "Build and sign a ledger entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", amount, err)
			}
			entryKind := domain.EntryKind(strings.ToUpper(kind))
			if !entryKind.IsValid() {
				return fmt.Errorf("unknown entry kind %q", kind)
			}
			if id == "" {
				id = uuid.NewString()
			}
			if nonce == "" {
				nonce = uuid.NewString()
			}
			if timestamp == 0 {
				timestamp = time.Now().UnixMilli()
			}

			session, err := unlock(sender, seed)
			if err != nil {
				return err
			}

			entry := domain.LedgerEntry{
				ID:         id,
				SenderID:   sender,
				ReceiverID: receiver,
				Amount:     value,
				Timestamp:  timestamp,
				Nonce:      nonce,
				Kind:       entryKind,
			}
			if err := service.NewEd25519SigningService().SignEntry(session, &entry); err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), dto.SignedEntryRequest{
				ID:              entry.ID,
				SenderID:        entry.SenderID,
				ReceiverID:      entry.ReceiverID,
				Amount:          amount,
				Timestamp:       entry.Timestamp,
				Nonce:           entry.Nonce,
				Signature:       entry.Signature,
				SenderPublicKey: entry.SenderPublicKey,
				Kind:            string(entry.Kind),
			})
		},
	}

	cmd.Flags().StringVar(&seed, "seed", "", "Base64 signing seed (or VLG_SIGNING_SEED)")
	cmd.Flags().StringVar(&sender, "sender", "", "Sender id")
	cmd.Flags().StringVar(&receiver, "receiver", "", "Receiver id")
	cmd.Flags().StringVar(&amount, "amount", "", "Decimal amount")
	cmd.Flags().StringVar(&kind, "kind", string(domain.EntryKindPeerTransfer), "Entry kind")
	cmd.Flags().StringVar(&nonce, "nonce", "", "Nonce (random when empty)")
	cmd.Flags().StringVar(&id, "id", "", "Entry id (random when empty)")
	cmd.Flags().Int64Var(&timestamp, "timestamp", 0, "Logical timestamp in unix ms (now when zero)")
	_ = cmd.MarkFlagRequired("sender")
	_ = cmd.MarkFlagRequired("receiver")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func signSessionCommand() *cobra.Command {
	var (
		seed    string
		account string
	)

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Sign a session challenge for POST /api/v1/sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := unlock(account, seed)
			if err != nil {
				return err
			}

			ts := time.Now().UnixMilli()
			nonce := uuid.NewString()
			sig, err := service.NewEd25519SigningService().Sign(session, domain.SessionChallengePayload(account, ts, nonce))
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), dto.OpenSessionRequest{
				AccountID: account,
				Timestamp: ts,
				Nonce:     nonce,
				Signature: sig,
			})
		},
	}

	cmd.Flags().StringVar(&seed, "seed", "", "Base64 signing seed (or VLG_SIGNING_SEED)")
	cmd.Flags().StringVar(&account, "account", "", "Account id")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
