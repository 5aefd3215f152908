package bindings

import (
	"context"
	"net"

	"github.com/duneland/dune/internal/core"
)

// dnsModule implements the `dns` binding's resolve() (§6): hostname to IP
// address list, submitted through the bridge the same as any other
// blocking host call (net.Resolver's LookupHost blocks on the network).
func dnsModule(env *Env) Module {
	return Module{
		Name: "dns",
		Install: func(rt core.JSRuntime) error {
			if err := rt.RegisterFunc("__dns_resolve", func(hostname string) (int, error) {
				return env.Bridge.Submit(func() (string, error) {
					addrs, err := net.DefaultResolver.LookupHost(context.Background(), hostname)
					if err != nil {
						return "", err
					}
					return core.MarshalArg(addrs)
				}), nil
			}); err != nil {
				return err
			}
			return rt.Eval(`globalThis.__dune_bindings.dns = {
				resolve: function(hostname) {
					const id = __dns_resolve(hostname);
					return globalThis.__dune_newPromise(id);
				},
			};`)
		},
	}
}
