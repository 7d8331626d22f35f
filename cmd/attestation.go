package cmd

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"attest-cli/detection"
	attest_protocol "attest-cli/solana"
	"attest-cli/storage"
)

// contentSource is where a command gets the content hash from. Exactly one
// field is set.
type contentSource struct {
	hash string
	text string
	file string
}

func (s *contentSource) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.hash, "hash", "", "SHA-256 content hash, 64 hex characters")
	cmd.Flags().StringVar(&s.text, "text", "", "text content to hash")
	cmd.Flags().StringVar(&s.file, "file", "", "file whose bytes are hashed")
}

// resolve returns the content hash and, when the content itself is at hand,
// its bytes.
func (s *contentSource) resolve() (attest_protocol.ContentHash, []byte, error) {
	set := 0
	for _, v := range []string{s.hash, s.text, s.file} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return attest_protocol.ContentHash{}, nil, errors.New("exactly one of --hash, --text or --file is required")
	}

	switch {
	case s.hash != "":
		hash, err := attest_protocol.ParseContentHash(s.hash)
		return hash, nil, err
	case s.text != "":
		content := []byte(s.text)
		return attest_protocol.HashContent(content), content, nil
	default:
		content, err := os.ReadFile(s.file)
		if err != nil {
			return attest_protocol.ContentHash{}, nil, errors.Wrapf(err, "failed to read %s", s.file)
		}
		return attest_protocol.HashContent(content), content, nil
	}
}

func isImageFile(path string) bool {
	return strings.HasPrefix(mime.TypeByExtension(strings.ToLower(filepath.Ext(path))), "image/")
}

// hashArg parses a positional content hash argument.
func hashArg(args []string) (attest_protocol.ContentHash, error) {
	return attest_protocol.ParseContentHash(strings.TrimSpace(args[0]))
}

func newInitCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the attestation program, making this wallet the admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.protocolClient(true)
			if err != nil {
				return err
			}

			created, err := client.EnsureInitialized(cmd.Context())
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintln(a.out, titleStyle.Render("Program initialized"))
			} else {
				fmt.Fprintln(a.out, promptStyle.Render("Program is already initialized."))
			}

			config, err := client.FetchConfig(cmd.Context())
			if err != nil || config == nil {
				return err
			}
			address, _, err := client.GetConfigPDA()
			if err != nil {
				return err
			}
			printConfig(a.out, address, config)
			return nil
		},
	}
}

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the program config, wallet and detection service status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := a.protocolClient(false)
			if err != nil {
				return err
			}

			fmt.Fprintln(a.out, titleStyle.Render("Attestation program"))
			printField(a.out, "Program:", client.ProgramID.String())
			printField(a.out, "RPC:", a.config.RpcEndpoint)

			config, err := client.FetchConfig(ctx)
			switch {
			case err != nil:
				return err
			case config == nil:
				printField(a.out, "Config:", "not initialized (run attest init)")
			default:
				address, _, err := client.GetConfigPDA()
				if err != nil {
					return err
				}
				printConfig(a.out, address, config)
			}

			if wallet, err := client.WalletAddress(); err == nil {
				printField(a.out, "Wallet:", wallet.String())
			} else {
				printField(a.out, "Wallet:", "none")
			}

			if err := a.detectionClient().Health(ctx); err != nil {
				printField(a.out, "Detection API:", warningStyle.Render(err.Error()))
			} else {
				printField(a.out, "Detection API:", infoStyle.Render("healthy"))
			}
			return nil
		},
	}
}

type createOptions struct {
	source         contentSource
	detect         bool
	detectionType  string
	probability    float64
	contentType    string
	detectionModel string
	metadataUri    string
}

// detectionOutcome is what a detection run contributes to an attestation.
type detectionOutcome struct {
	probability    float64
	contentType    string
	detectionModel string
}

// runDetection sends content to the detection service. Files with an image
// extension go to the image endpoint, everything else is treated as text.
func runDetection(ctx context.Context, detector *detection.Client, source *contentSource, content []byte, detectionType string) (*detectionOutcome, error) {
	if content == nil {
		return nil, errors.New("--detect needs the content itself: use --text or --file")
	}

	if source.file != "" && isImageFile(source.file) {
		dt, err := detection.ParseDetectionType(detectionType)
		if err != nil {
			return nil, err
		}
		result, err := detector.DetectImage(ctx, source.file, bytes.NewReader(content), dt)
		if err != nil {
			return nil, err
		}
		probability, model := result.Verdict()
		contentType := result.ContentType
		if contentType == "" {
			contentType = "image"
		}
		return &detectionOutcome{
			probability:    probability,
			contentType:    contentType,
			detectionModel: model,
		}, nil
	}

	result, err := detector.DetectText(ctx, string(content))
	if err != nil {
		return nil, err
	}
	return &detectionOutcome{
		probability:    result.AiProbability,
		contentType:    result.ContentType,
		detectionModel: result.DetectionModel,
	}, nil
}

func newCreateCommand(a *app) *cobra.Command {
	opts := &createOptions{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record an AI-detection result on chain",
		Example: `  attest create --text "some paragraph" --detect
  attest create --file photo.jpg --detect --type deepfake
  attest create --hash 9f86d0... --probability 87.5 --content-type text --model roberta`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			hash, content, err := opts.source.resolve()
			if err != nil {
				return err
			}

			probability := opts.probability
			contentType := opts.contentType
			model := opts.detectionModel
			switch {
			case opts.detect:
				fmt.Fprintln(a.out, promptStyle.Render("Running detection..."))
				outcome, err := runDetection(ctx, a.detectionClient(), &opts.source, content, opts.detectionType)
				if err != nil {
					return err
				}
				probability = outcome.probability
				if model == "" {
					model = outcome.detectionModel
				}
				if contentType == "" {
					contentType = outcome.contentType
				}
				fmt.Fprintln(a.out, promptStyle.Render(fmt.Sprintf("Detection result: %.2f%% AI (%s)", probability, model)))
			case !cmd.Flags().Changed("probability"):
				return errors.New("--probability is required unless --detect is set")
			}
			if contentType == "" && opts.source.text != "" {
				contentType = "text"
			}

			client, err := a.protocolClient(true)
			if err != nil {
				return err
			}

			fmt.Fprintln(a.out, promptStyle.Render("Submitting attestation... Please wait."))
			sig, err := client.CreateAttestation(ctx, hash, probability, contentType, model, opts.metadataUri)
			if err != nil {
				return err
			}

			record := &storage.Record{
				ContentHash:    hash.String(),
				AiProbability:  probability,
				ContentType:    contentType,
				DetectionModel: model,
				MetadataUri:    opts.metadataUri,
				Signature:      sig.String(),
			}
			if wallet, err := client.WalletAddress(); err == nil {
				record.Creator = wallet.String()
			}
			a.remember(ctx, record)

			printSignature(a.out, "Attestation created", sig)
			printField(a.out, "Content hash:", hash.String())
			if address, _, err := client.GetAttestationPDA(hash); err == nil {
				printField(a.out, "Address:", address.String())
			}
			return nil
		},
	}

	opts.source.bind(cmd)
	cmd.Flags().BoolVar(&opts.detect, "detect", false, "run the detection service to obtain probability and model")
	cmd.Flags().StringVar(&opts.detectionType, "type", "", "image detection type: ai, deepfake or both")
	cmd.Flags().Float64Var(&opts.probability, "probability", 0, "AI probability percentage, 0 to 100")
	cmd.Flags().StringVar(&opts.contentType, "content-type", "", "content type, e.g. text or image")
	cmd.Flags().StringVar(&opts.detectionModel, "model", "", "detection model name")
	cmd.Flags().StringVar(&opts.metadataUri, "uri", "", "optional metadata URI")
	return cmd
}

func newShowCommand(a *app) *cobra.Command {
	var (
		source contentSource
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "show [hash]",
		Short: "Look up the attestation for a content hash",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				source.hash = args[0]
			}
			hash, _, err := source.resolve()
			if err != nil {
				return err
			}

			client, err := a.protocolClient(false)
			if err != nil {
				return err
			}
			attestation, err := client.FetchAttestation(cmd.Context(), hash)
			if err != nil {
				return err
			}
			if attestation == nil {
				return errors.Errorf("no attestation found for %s", hash)
			}

			if asJSON {
				return printJSON(a.out, attestation)
			}
			address, _, err := client.GetAttestationPDA(hash)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, titleStyle.Render("Attestation"))
			printAttestation(a.out, address, attestation)
			return nil
		},
	}
	source.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newListCommand(a *app) *cobra.Command {
	var (
		creator string
		mine    bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List attestations, optionally by creator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if creator != "" && mine {
				return errors.New("--creator and --mine are mutually exclusive")
			}

			client, err := a.protocolClient(mine)
			if err != nil {
				return err
			}

			var attestations []*attest_protocol.Attestation
			switch {
			case mine:
				wallet, err := client.WalletAddress()
				if err != nil {
					return err
				}
				attestations, err = client.FetchAttestationsByCreator(ctx, wallet)
				if err != nil {
					return err
				}
			case creator != "":
				key, err := solana.PublicKeyFromBase58(creator)
				if err != nil {
					return errors.Wrap(err, "invalid --creator")
				}
				attestations, err = client.FetchAttestationsByCreator(ctx, key)
				if err != nil {
					return err
				}
			default:
				attestations, err = client.FetchAllAttestations(ctx)
				if err != nil {
					return err
				}
			}

			if asJSON {
				if attestations == nil {
					attestations = []*attest_protocol.Attestation{}
				}
				return printJSON(a.out, attestations)
			}

			fmt.Fprintln(a.out, titleStyle.Render(fmt.Sprintf("%d attestation(s)", len(attestations))))
			for _, attestation := range attestations {
				address, _, err := client.GetAttestationPDA(attestation.ContentHash)
				if err != nil {
					return err
				}
				printAttestation(a.out, address, attestation)
				fmt.Fprintln(a.out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&creator, "creator", "", "only attestations created by this address")
	cmd.Flags().BoolVar(&mine, "mine", false, "only attestations created by this wallet")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newCloseCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "close <hash>",
		Short: "Close an attestation you created and reclaim its rent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := hashArg(args)
			if err != nil {
				return err
			}
			client, err := a.protocolClient(true)
			if err != nil {
				return err
			}

			sig, err := client.CloseAttestation(cmd.Context(), hash)
			if err != nil {
				return err
			}
			a.forget(cmd.Context(), hash.String())

			printSignature(a.out, "Attestation closed", sig)
			return nil
		},
	}
}

func newVerifyCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <hash>",
		Short: "Mark an attestation as verified (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := hashArg(args)
			if err != nil {
				return err
			}
			client, err := a.protocolClient(true)
			if err != nil {
				return err
			}

			sig, err := client.VerifyAttestation(cmd.Context(), hash)
			if err != nil {
				return err
			}
			printSignature(a.out, "Attestation verified", sig)
			return nil
		},
	}
}

func newLinkCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "link <hash> <asset-id>",
		Short: "Link a compressed NFT certificate to an attestation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := hashArg(args)
			if err != nil {
				return err
			}
			assetID, err := solana.PublicKeyFromBase58(args[1])
			if err != nil {
				return errors.Wrap(err, "invalid asset id")
			}
			client, err := a.protocolClient(true)
			if err != nil {
				return err
			}

			sig, err := client.LinkCertificate(cmd.Context(), hash, assetID)
			if err != nil {
				return err
			}
			printSignature(a.out, "Certificate linked", sig)
			return nil
		},
	}
}

func newUpdateMetadataCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update-metadata <hash> <uri>",
		Short: "Replace the metadata URI of an attestation you created",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			hash, err := hashArg(args)
			if err != nil {
				return err
			}
			client, err := a.protocolClient(true)
			if err != nil {
				return err
			}

			sig, err := client.UpdateMetadata(ctx, hash, args[1])
			if err != nil {
				return err
			}

			if store, err := a.historyStore(); err == nil {
				if record, err := store.Get(ctx, hash.String()); err == nil {
					record.MetadataUri = args[1]
					a.remember(ctx, record)
				}
			}

			printSignature(a.out, "Metadata updated", sig)
			return nil
		},
	}
}

func newEventsCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "events <hash>",
		Short: "Show the program events recorded for an attestation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := hashArg(args)
			if err != nil {
				return err
			}
			client, err := a.protocolClient(false)
			if err != nil {
				return err
			}

			events, err := client.AttestationEvents(cmd.Context(), hash)
			if err != nil {
				return err
			}
			if asJSON {
				if events == nil {
					events = []*attest_protocol.Event{}
				}
				return printJSON(a.out, events)
			}

			if len(events) == 0 {
				fmt.Fprintln(a.out, promptStyle.Render("No events found."))
				return nil
			}
			for _, ev := range events {
				printEvent(a.out, ev)
				fmt.Fprintln(a.out)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
