/*
Package stitch is the application client for a Stitch backend.

A Client wraps the auth core in pkg/stitchauth and adds the app level
services that ride on top of it: calling server functions, managing user API
keys, and registering email/password users.

	client, err := stitch.NewClient(ctx, stitchauth.Config{
		AppID:   "my-app",
		BaseURL: "http://localhost:8080",
		Storage: store, // any pkg/storage driver
	})
	if err != nil {
		return err
	}
	defer client.Close()

	user, err := client.Auth().LoginWithCredential(ctx, stitchauth.AnonymousCredential())

	var sum float64
	err = client.CallFunction(ctx, "sum", []any{1, 2}, &sum)

# Auth listeners

Every committed auth state change is delivered to the registered listeners
in registration order, on the goroutine that made the change:

	remove := client.AddAuthListener(stitch.AuthListenerFunc(func(c *stitch.Client, e stitchauth.Event) {
		log.Println(e.Type)
	}))
	defer remove()

# Multiple apps

Processes talking to several apps keep their clients in a Registry. There is
no package level state; the caller owns the registry.

	reg := stitch.NewRegistry()
	client, err := reg.Init(ctx, cfg)
	...
	client, err = reg.Get("my-app")
*/
package stitch
