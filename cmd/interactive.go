package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	figure "github.com/common-nighthawk/go-figure"
	"github.com/pkg/errors"

	attest_protocol "attest-cli/solana"
	"attest-cli/storage"
)

const (
	menuCreate   = "Create Attestation"
	menuLookup   = "Look Up Attestation"
	menuMine     = "My Attestations"
	menuDetect   = "Detect Text (no attestation)"
	menuHistory  = "Local History"
	menuWallet   = "Wallet Management"
	menuStatus   = "Program Status"
	menuExit     = "Exit"
	walletView   = "View Address"
	walletFunds  = "View Balance"
	walletExport = "Export Wallet (UNSAFE)"
	walletBack   = "Back to Main Menu"
)

// runInteractive is the main entry point for the interactive CLI.
func runInteractive(ctx context.Context, a *app) error {
	banner := figure.NewFigure("ATTEST", "larry3d", true)
	fmt.Fprintln(a.out, titleStyle.Render(banner.String()))

	client, err := a.protocolClient(true)
	if err != nil {
		return err
	}
	wallet, _ := client.WalletAddress()
	fmt.Fprintln(a.out, promptStyle.Render(fmt.Sprintf("Wallet: %s", wallet)))
	fmt.Fprintln(a.out, promptStyle.Render(fmt.Sprintf("Program: %s", client.ProgramID)))
	fmt.Fprintln(a.out)

	for {
		if ctx.Err() != nil {
			return nil
		}

		choice := ""
		menu := &survey.Select{
			Message: promptStyle.Render("Choose an action:"),
			Options: []string{menuCreate, menuLookup, menuMine, menuDetect, menuHistory, menuWallet, menuStatus, menuExit},
			Help:    "Use the arrow keys to navigate, and press Enter to select.",
		}
		if err := survey.AskOne(menu, &choice); err != nil {
			if errors.Is(err, terminal.InterruptErr) {
				return nil
			}
			return err
		}

		var actionErr error
		switch choice {
		case menuCreate:
			actionErr = handleCreate(ctx, a, client)
		case menuLookup:
			actionErr = handleLookup(ctx, a, client)
		case menuMine:
			actionErr = handleMine(ctx, a, client)
		case menuDetect:
			actionErr = handleDetect(ctx, a)
		case menuHistory:
			actionErr = handleHistory(ctx, a)
		case menuWallet:
			actionErr = handleWalletManagement(ctx, a, client)
		case menuStatus:
			actionErr = handleStatus(ctx, a, client)
		case menuExit:
			fmt.Fprintln(a.out, "Exiting Attest CLI.")
			return nil
		}
		if actionErr != nil {
			fmt.Fprintln(a.out, warningStyle.Render(fmt.Sprintf("\n%v", actionErr)))
		}
		fmt.Fprintln(a.out)
	}
}

func askHash() (attest_protocol.ContentHash, error) {
	raw := ""
	prompt := &survey.Input{Message: "Enter the content hash (64 hex characters):"}
	if err := survey.AskOne(prompt, &raw, survey.WithValidator(survey.Required)); err != nil {
		return attest_protocol.ContentHash{}, err
	}
	return attest_protocol.ParseContentHash(raw)
}

func handleCreate(ctx context.Context, a *app, client *attest_protocol.Client) error {
	fmt.Fprintln(a.out, titleStyle.Render("Create Attestation"))

	kind := ""
	kindPrompt := &survey.Select{
		Message: "What are you attesting?",
		Options: []string{"Text", "File", "Existing content hash"},
	}
	if err := survey.AskOne(kindPrompt, &kind); err != nil {
		return err
	}

	source := &contentSource{}
	switch kind {
	case "Text":
		prompt := &survey.Multiline{Message: "Paste the text:"}
		if err := survey.AskOne(prompt, &source.text, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	case "File":
		prompt := &survey.Input{Message: "Path to the file:"}
		if err := survey.AskOne(prompt, &source.file, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	default:
		prompt := &survey.Input{Message: "Content hash (64 hex characters):"}
		if err := survey.AskOne(prompt, &source.hash, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}

	hash, content, err := source.resolve()
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, promptStyle.Render(fmt.Sprintf("Content hash: %s", hash)))

	existing, err := client.FetchAttestation(ctx, hash)
	if err != nil {
		return err
	}
	if existing != nil {
		fmt.Fprintln(a.out, warningStyle.Render("This content is already attested:"))
		address, _, _ := client.GetAttestationPDA(hash)
		printAttestation(a.out, address, existing)
		return nil
	}

	var (
		probability float64
		contentType string
		model       string
	)
	useDetection := false
	if content != nil {
		confirm := &survey.Confirm{Message: "Run the detection service on this content?", Default: true}
		if err := survey.AskOne(confirm, &useDetection); err != nil {
			return err
		}
	}

	if useDetection {
		fmt.Fprintln(a.out, promptStyle.Render("\nRunning detection... Please wait."))
		outcome, err := runDetection(ctx, a.detectionClient(), source, content, "")
		if err != nil {
			return err
		}
		probability, contentType, model = outcome.probability, outcome.contentType, outcome.detectionModel
		fmt.Fprintln(a.out, infoStyle.Render(fmt.Sprintf("Detection result: %.2f%% AI (%s)", probability, model)))
	} else {
		probabilityStr := ""
		probabilityPrompt := &survey.Input{Message: "AI probability (0-100):"}
		if err := survey.AskOne(probabilityPrompt, &probabilityStr, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
		if probability, err = strconv.ParseFloat(probabilityStr, 64); err != nil {
			return errors.New("invalid probability entered")
		}
		if err := survey.AskOne(&survey.Input{Message: "Detection model:"}, &model); err != nil {
			return err
		}
	}
	if contentType == "" {
		defaultType := "text"
		if source.file != "" && isImageFile(source.file) {
			defaultType = "image"
		}
		if err := survey.AskOne(&survey.Input{Message: "Content type:", Default: defaultType}, &contentType); err != nil {
			return err
		}
	}

	uri := ""
	if err := survey.AskOne(&survey.Input{Message: "Metadata URI (optional):"}, &uri); err != nil {
		return err
	}

	confirm := false
	confirmPrompt := &survey.Confirm{
		Message: fmt.Sprintf("Attest %s as %.2f%% AI on chain?", hash, probability),
		Default: true,
	}
	if err := survey.AskOne(confirmPrompt, &confirm); err != nil {
		return err
	}
	if !confirm {
		fmt.Fprintln(a.out, promptStyle.Render("\nAttestation cancelled."))
		return nil
	}

	fmt.Fprintln(a.out, promptStyle.Render("\nSubmitting attestation... Please wait."))
	sig, err := client.CreateAttestation(ctx, hash, probability, contentType, model, uri)
	if err != nil {
		return err
	}

	record := &storage.Record{
		ContentHash:    hash.String(),
		AiProbability:  probability,
		ContentType:    contentType,
		DetectionModel: model,
		MetadataUri:    uri,
		Signature:      sig.String(),
	}
	if wallet, err := client.WalletAddress(); err == nil {
		record.Creator = wallet.String()
	}
	a.remember(ctx, record)

	printSignature(a.out, "Attestation created", sig)
	return nil
}

func handleLookup(ctx context.Context, a *app, client *attest_protocol.Client) error {
	hash, err := askHash()
	if err != nil {
		return err
	}

	attestation, err := client.FetchAttestation(ctx, hash)
	if err != nil {
		return err
	}
	if attestation == nil {
		fmt.Fprintln(a.out, promptStyle.Render("\nNo attestation exists for this content."))
		return nil
	}
	address, _, err := client.GetAttestationPDA(hash)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, titleStyle.Render("Attestation"))
	printAttestation(a.out, address, attestation)
	return nil
}

func handleMine(ctx context.Context, a *app, client *attest_protocol.Client) error {
	wallet, err := client.WalletAddress()
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, promptStyle.Render("\nFetching attestations... Please wait."))
	attestations, err := client.FetchAttestationsByCreator(ctx, wallet)
	if err != nil {
		return err
	}
	if len(attestations) == 0 {
		fmt.Fprintln(a.out, promptStyle.Render("You have not created any attestations."))
		return nil
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
}

func handleDetect(ctx context.Context, a *app) error {
	text := ""
	prompt := &survey.Multiline{Message: "Paste the text:"}
	if err := survey.AskOne(prompt, &text, survey.WithValidator(survey.Required)); err != nil {
		return err
	}

	fmt.Fprintln(a.out, promptStyle.Render("\nRunning detection... Please wait."))
	result, err := a.detectionClient().DetectText(ctx, text)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, titleStyle.Render("Text detection"))
	printField(a.out, "Classification:", result.Classification)
	printField(a.out, "AI probability:", fmt.Sprintf("%.2f%%", result.AiProbability))
	printField(a.out, "Model:", result.DetectionModel)
	printField(a.out, "Content hash:", result.ContentHash)
	return nil
}

func handleHistory(ctx context.Context, a *app) error {
	store, err := a.historyStore()
	if err != nil {
		return err
	}
	records, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(a.out, promptStyle.Render("\nNo attestations submitted yet."))
		return nil
	}
	fmt.Fprintln(a.out, titleStyle.Render("Local History"))
	for _, record := range records {
		printRecord(a.out, record)
		fmt.Fprintln(a.out)
	}
	return nil
}

func handleStatus(ctx context.Context, a *app, client *attest_protocol.Client) error {
	config, err := client.FetchConfig(ctx)
	if err != nil {
		return err
	}
	if config == nil {
		fmt.Fprintln(a.out, warningStyle.Render("\nThe program is not initialized. Run `attest init` as the admin."))
		return nil
	}
	address, _, err := client.GetConfigPDA()
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, titleStyle.Render("Program Status"))
	printConfig(a.out, address, config)
	return nil
}

func handleWalletManagement(ctx context.Context, a *app, client *attest_protocol.Client) error {
	menu := &survey.Select{
		Message: promptStyle.Render("Wallet Management:"),
		Options: []string{walletView, walletFunds, walletExport, walletBack},
	}
	choice := ""
	if err := survey.AskOne(menu, &choice); err != nil {
		return err
	}

	switch choice {
	case walletView:
		wallet, err := client.WalletAddress()
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, titleStyle.Render("Your Current Wallet Address:"))
		fmt.Fprintln(a.out, wallet.String())
	case walletFunds:
		fmt.Fprintln(a.out, promptStyle.Render("\nChecking balance... Please wait."))
		balance, err := client.Balance(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, titleStyle.Render("Your Wallet Balance:"))
		fmt.Fprintf(a.out, "   %s\n", formatSol(balance))
	case walletExport:
		return exportWallet(a)
	}
	return nil
}

func exportWallet(a *app) error {
	fmt.Fprintln(a.out, warningStyle.Render("\nWARNING: EXPORTING YOUR PRIVATE KEY"))
	fmt.Fprintln(a.out, promptStyle.Render("Sharing your private key can result in the permanent loss of your funds."))
	confirm := false
	prompt := &survey.Confirm{Message: "Are you absolutely sure?", Default: false}
	if err := survey.AskOne(prompt, &confirm); err != nil {
		return err
	}
	if !confirm {
		fmt.Fprintln(a.out, promptStyle.Render("\nExport cancelled."))
		return nil
	}

	wallet, err := a.loadWallet(false)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, titleStyle.Render("Your Private Key (Base58):"))
	fmt.Fprintln(a.out, wallet.PrivateKey.String())
	return nil
}
