package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/auth"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/model"
)

func init() {
	remoteCmd := &cobra.Command{Use: "remote", Short: "Call a running trail endpoint"}

	var token, ownerID string
	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Ask the endpoint to verify the caller's most recent license",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" && ownerID == "" {
				return fmt.Errorf("--token or --owner required")
			}
			return runRemoteVerify(apiFlag, token, ownerID, os.Stdout)
		},
	}
	verifyCmd.Flags().StringVarP(&token, "token", "t", "", "Bearer token (dev auth mode)")
	verifyCmd.Flags().StringVarP(&ownerID, "owner", "o", "", "provider:address sent as the gateway authorizer id")
	remoteCmd.AddCommand(verifyCmd)

	rootCmd.AddCommand(remoteCmd)
}

func runRemoteVerify(api, token, ownerID string, out io.Writer) error {
	client := resty.New().SetBaseURL(api).SetTimeout(10 * time.Second)
	req := client.R().SetHeader("Content-Type", "application/json")
	if token != "" {
		req.SetAuthToken(token)
	}
	if ownerID != "" {
		req.SetHeader(auth.HeaderAuthorizerID, ownerID)
	}

	var res model.VerifyResult
	resp, err := req.SetResult(&res).Post("/license/verify")
	if err != nil {
		return fmt.Errorf("verify request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode(), resp.String())
	}
	if res.Verified {
		_, err = fmt.Fprintln(out, "verified")
		return err
	}
	reason := ""
	if res.Reason != nil {
		reason = *res.Reason
	}
	_, err = fmt.Fprintf(out, "not verified: %s\n", reason)
	return err
}
