package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"xdao.co/pngme/cidutil"
	"xdao.co/pngme/config"
	"xdao.co/pngme/png"
	"xdao.co/pngme/seal"
	"xdao.co/pngme/snapshot"
)

func (a *app) encodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "encode <path> <chunk-type> <message> [output]",
		Short: "Hide a message in a new chunk.",
		Args:  rangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, tag, message := args[0], args[1], args[2]
			dst := path
			if len(args) == 4 {
				dst = args[3]
			}

			ct, err := png.ParseChunkType(tag)
			if err != nil {
				return err
			}
			p, raw, err := a.readPng(path)
			if err != nil {
				return err
			}

			data := []byte(message)
			if pass := a.passphraseBytes(); pass != nil {
				aad := ct.Bytes()
				if data, err = seal.Seal(pass, aad[:], data); err != nil {
					return err
				}
				a.log.Debug("sealed message", zap.Int("plaintext", len(message)), zap.Int("sealed", len(data)))
			}
			chunk := png.NewChunk(ct, data)

			if err := a.snapshot(path, raw); err != nil {
				return err
			}
			png.Embed(p, chunk)
			if err := writeFile(dst, p.Bytes()); err != nil {
				return err
			}
			a.log.Debug("wrote file", zap.String("path", dst), zap.Int("chunks", p.Len()))

			fmt.Fprintln(a.out, "added new chunk")
			fmt.Fprint(a.out, chunk)
			return nil
		},
	}
}

func (a *app) decodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <path> <chunk-type>",
		Short: "Print the message in the first chunk of a type.",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, tag := args[0], args[1]
			ct, err := png.ParseChunkType(tag)
			if err != nil {
				return err
			}
			p, _, err := a.readPng(path)
			if err != nil {
				return err
			}
			c, ok := p.ChunkByType(tag)
			if !ok {
				fmt.Fprintf(a.out, "chunk type not found: %s\n", tag)
				return nil
			}

			// Plain text may start with the sealed magic, so sealing is only
			// assumed when a passphrase is given.
			if pass := a.passphraseBytes(); pass != nil && seal.IsSealed(c.Data()) {
				aad := ct.Bytes()
				plain, err := seal.Open(pass, aad[:], c.Data())
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, lossy(plain))
				return nil
			}

			if seal.IsSealed(c.Data()) {
				a.log.Debug("payload looks sealed; printing it as text",
					zap.String("chunk_type", tag),
					zap.String("hint", "set --passphrase or $"+EnvPassphrase))
			}
			text, err := c.Text()
			if png.IsKind(err, png.KindInvalidUTF8) {
				a.log.Debug("payload is not valid UTF-8", zap.String("chunk_type", tag))
				text = lossy(c.Data())
			} else if err != nil {
				return err
			}
			fmt.Fprintln(a.out, text)
			return nil
		},
	}
}

func (a *app) removeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <path> <chunk-type>",
		Short: "Remove the first chunk of a type.",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, tag := args[0], args[1]
			if _, err := png.ParseChunkType(tag); err != nil {
				return err
			}
			p, raw, err := a.readPng(path)
			if err != nil {
				return err
			}
			if _, ok := p.ChunkByType(tag); !ok {
				fmt.Fprintf(a.out, "chunk type not found: %s\n", tag)
				return nil
			}

			if err := a.snapshot(path, raw); err != nil {
				return err
			}
			removed, err := p.RemoveChunk(tag)
			if err != nil {
				return err
			}
			if err := writeFile(path, p.Bytes()); err != nil {
				return err
			}

			fmt.Fprintln(a.out, "removed chunk:")
			fmt.Fprint(a.out, removed)
			return nil
		},
	}
}

func (a *app) printCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "print <path>",
		Short: "Print every chunk of a file.",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, raw, err := a.readPng(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(a.out, p)
			fmt.Fprintf(a.out, "%d chunks, %s, cid %s\n", p.Len(), humanize.Bytes(uint64(len(raw))), cidutil.String(raw))
			return nil
		},
	}
}

func (a *app) restoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <cid> <path>",
		Short: "Write a stored snapshot to path.",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cidutil.Parse(args[0])
			if err != nil {
				return err
			}
			store, closeFn, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeFn()
			if store == nil {
				return errors.New("no snapshot store configured: set --snapshot-dir or --config")
			}

			data, err := store.Get(id)
			if err != nil {
				return fmt.Errorf("restore %s: %w", id, err)
			}
			if err := writeFile(args[1], data); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "restored %s (%s)\n", args[1], humanize.Bytes(uint64(len(data))))
			return nil
		},
	}
}

func (a *app) cidCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cid <path>",
		Short: "Print the CIDv1 of a file.",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, cidutil.String(b))
			return nil
		},
	}
}

func (a *app) readPng(path string) (*png.Png, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	p, err := png.Parse(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	a.log.Debug("parsed file",
		zap.String("path", path),
		zap.String("size", humanize.Bytes(uint64(len(raw)))),
		zap.Int("chunks", p.Len()))
	return p, raw, nil
}

// snapshot stores the bytes of path before it is rewritten. It is a no-op
// when no store is configured.
func (a *app) snapshot(path string, raw []byte) error {
	store, closeFn, err := a.openStore()
	if err != nil {
		return err
	}
	defer closeFn()
	if store == nil {
		a.log.Debug("no snapshot store configured")
		return nil
	}
	id, err := store.Put(raw)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", path, err)
	}
	a.log.Info("stored snapshot", zap.String("path", path), zap.Stringer("cid", id))
	return nil
}

func (a *app) openStore() (snapshot.Store, func() error, error) {
	noop := func() error { return nil }
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, noop, err
	}
	s := cfg.Snapshots
	if a.snapshotDir != "" {
		s = s.WithLocalDir(a.snapshotDir)
	}
	return s.Open()
}

func (a *app) passphraseBytes() []byte {
	if a.passphrase == "" {
		return nil
	}
	return []byte(a.passphrase)
}

// writeFile keeps the mode of an existing file; new files get 0644.
func writeFile(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}
	return os.WriteFile(path, data, mode)
}

func lossy(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}
