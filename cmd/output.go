package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gagliardetto/solana-go"

	attest_protocol "attest-cli/solana"
	"attest-cli/storage"
)

func printJSON(out io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func printField(out io.Writer, label string, value interface{}) {
	fmt.Fprintf(out, "   %s %v\n", labelStyle.Render(label), value)
}

func printSignature(out io.Writer, title string, sig solana.Signature) {
	fmt.Fprintln(out, titleStyle.Render(title))
	printField(out, "Signature:", sig.String())
}

func formatUnix(ts int64) string {
	if ts == 0 {
		return "-"
	}
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}

func formatSol(lamports uint64) string {
	return fmt.Sprintf("%.9f SOL", float64(lamports)/float64(solana.LAMPORTS_PER_SOL))
}

func printAttestation(out io.Writer, address solana.PublicKey, a *attest_protocol.Attestation) {
	printField(out, "Content hash:", a.ContentHash.String())
	if !address.IsZero() {
		printField(out, "Address:", address.String())
	}
	printField(out, "AI probability:", fmt.Sprintf("%.2f%%", a.AiProbabilityPercent()))
	printField(out, "Content type:", a.ContentType)
	printField(out, "Model:", a.DetectionModel)
	if a.MetadataUri != "" {
		printField(out, "Metadata URI:", a.MetadataUri)
	}
	printField(out, "Creator:", a.Creator.String())
	printField(out, "Created:", formatUnix(a.CreatedAt))

	if by, ok := a.VerifiedBy.Get(); a.IsVerified && ok {
		at, _ := a.VerifiedAt.Get()
		printField(out, "Verified:", fmt.Sprintf("yes, by %s at %s", by, formatUnix(at)))
	} else {
		printField(out, "Verified:", "no")
	}
	if asset, ok := a.CnftAssetId.Get(); ok {
		printField(out, "Certificate:", asset.String())
	}
}

func printConfig(out io.Writer, address solana.PublicKey, c *attest_protocol.ProgramConfig) {
	printField(out, "Config:", address.String())
	printField(out, "Admin:", c.Admin.String())
	printField(out, "Attestations:", c.TotalAttestations)
	printField(out, "Paused:", c.IsPaused)
}

func printEvent(out io.Writer, ev *attest_protocol.Event) {
	fmt.Fprintf(out, "%s %s\n", infoStyle.Render(ev.Name), promptStyle.Render(formatUnix(ev.Timestamp)))
	printField(out, "Slot:", ev.Slot)
	printField(out, "Signature:", ev.Signature.String())
	switch ev.Name {
	case attest_protocol.EventAttestationCreated:
		printField(out, "AI probability:", fmt.Sprintf("%.2f%%", attest_protocol.BasisPointsToPercent(ev.AiProbability)))
		printField(out, "Model:", ev.DetectionModel)
	case attest_protocol.EventCertificateLinked:
		if asset, ok := ev.CnftAssetId.Get(); ok {
			printField(out, "Certificate:", asset.String())
		}
	case attest_protocol.EventMetadataUpdated:
		printField(out, "Metadata URI:", ev.MetadataUri)
	}
	if !ev.Actor.IsZero() {
		printField(out, "By:", ev.Actor.String())
	}
}

func printRecord(out io.Writer, r *storage.Record) {
	fmt.Fprintf(out, "%s %s\n", infoStyle.Render(r.ContentHash), promptStyle.Render(r.CreatedAt.Local().Format(time.RFC1123)))
	printField(out, "AI probability:", fmt.Sprintf("%.2f%%", r.AiProbability))
	if r.ContentType != "" {
		printField(out, "Content type:", r.ContentType)
	}
	if r.DetectionModel != "" {
		printField(out, "Model:", r.DetectionModel)
	}
	if r.Signature != "" {
		printField(out, "Signature:", r.Signature)
	}
}
