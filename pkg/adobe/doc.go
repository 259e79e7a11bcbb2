// Package adobe provides clients for the Adobe services the campaign
// pipeline depends on: IMS server-to-server authentication, Firefly image
// generation, and the Photoshop API for PSD manipulation.
//
// Both services work the same way: a POST submits an async job and returns
// a status URL, then the client polls that URL until the job reports
// succeeded or failed. The shared Client handles token injection, the
// x-api-key header, submission, and polling; Firefly and Photoshop add the
// endpoint payloads on top.
//
// # Rate limiting
//
// Every request is gated through the rate limit registry before it leaves
// the process. Token refreshes draw from adobe_auth, Firefly calls from
// adobe_firefly, and Photoshop calls (including status polls) from
// adobe_photoshop. Gated calls wait for capacity when the registry runs in
// wait mode.
//
// # Usage
//
//	var cfg adobe.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
//	ps, err := adobe.NewPhotoshop(ctx, cfg, limits)
//	if err != nil {
//		return err
//	}
//
//	statusURL, err := ps.EditTextLayer(ctx, adobe.TextEdit{
//		InputURL:  templateURL,
//		LayerName: "Campaign Message",
//		Text:      brief.CampaignMessage,
//		OutputURL: outputURL,
//	})
//	if err != nil {
//		return err
//	}
//	if _, err := ps.AwaitJob(ctx, statusURL); err != nil {
//		return err
//	}
//
// Input and output locations are presigned S3 URLs passed with
// storage "external"; the pkg/storage Manager produces them.
package adobe
