// Package client is the Go SDK for a running reportledger server.
//
// It wraps the /api/v1 HTTP surface: recording report cards, listing the
// chain, and asking the server to verify it.
//
//	c, err := client.New("http://localhost:8080")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Authenticating
//
// When the server has a registrar signing secret configured, writes need a
// registrar token. Exchange the shared secret for one and attach it:
//
//	tok, err := c.IssueToken(ctx, os.Getenv("REGISTRAR_SECRET"), "front-office")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	c, _ = client.New("http://localhost:8080", client.WithBearerToken(tok))
//
// # Recording and checking
//
//	res, err := c.AddReportCard(ctx, "Ana", map[string]string{
//	    "Math": "A", "Science": "B", "English": "A",
//	})
//
//	v, err := c.CheckIntegrity(ctx)
//	if !v.Valid {
//	    fmt.Printf("chain broken at block %d (%s)\n", v.Index, v.Reason)
//	}
//
// A tampered chain is not an error: CheckIntegrity returns a result with
// Valid set to false.
package client
