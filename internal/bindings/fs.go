package bindings

import (
	"encoding/base64"
	"os"

	"github.com/duneland/dune/internal/core"
)

// fsModule implements the `fs` binding's promise-based file API (§6):
// readFile/writeFile/stat/readdir/mkdir/remove, each submitted to the
// bridge so a slow disk (or a network filesystem) never blocks the script
// thread — the same "hand back a pending id, do the work on a goroutine"
// shape the teacher's fetch binding uses for outbound HTTP.
func fsModule(env *Env) Module {
	return Module{
		Name: "fs",
		Install: func(rt core.JSRuntime) error {
			if err := rt.RegisterFunc("__fs_readFile", func(path string, encoding string) (int, error) {
				return env.Bridge.Submit(func() (string, error) {
					data, err := os.ReadFile(path)
					if err != nil {
						return "", err
					}
					if encoding == "utf8" {
						return core.MarshalArg(string(data))
					}
					return core.MarshalArg(base64.StdEncoding.EncodeToString(data))
				}), nil
			}); err != nil {
				return err
			}

			if err := rt.RegisterFunc("__fs_writeFile", func(path string, contentsJSON string, isBase64 bool) (int, error) {
				return env.Bridge.Submit(func() (string, error) {
					var contents string
					if err := core.UnmarshalArg(contentsJSON, &contents); err != nil {
						return "", err
					}
					var data []byte
					if isBase64 {
						decoded, err := base64.StdEncoding.DecodeString(contents)
						if err != nil {
							return "", err
						}
						data = decoded
					} else {
						data = []byte(contents)
					}
					if err := os.WriteFile(path, data, 0o644); err != nil {
						return "", err
					}
					return "", nil
				}), nil
			}); err != nil {
				return err
			}

			if err := rt.RegisterFunc("__fs_remove", func(path string, recursive bool) (int, error) {
				return env.Bridge.Submit(func() (string, error) {
					var err error
					if recursive {
						err = os.RemoveAll(path)
					} else {
						err = os.Remove(path)
					}
					return "", err
				}), nil
			}); err != nil {
				return err
			}

			if err := rt.RegisterFunc("__fs_mkdir", func(path string, recursive bool) (int, error) {
				return env.Bridge.Submit(func() (string, error) {
					var err error
					if recursive {
						err = os.MkdirAll(path, 0o755)
					} else {
						err = os.Mkdir(path, 0o755)
					}
					return "", err
				}), nil
			}); err != nil {
				return err
			}

			if err := rt.RegisterFunc("__fs_readdir", func(path string) (int, error) {
				return env.Bridge.Submit(func() (string, error) {
					entries, err := os.ReadDir(path)
					if err != nil {
						return "", err
					}
					names := make([]string, len(entries))
					for i, e := range entries {
						names[i] = e.Name()
					}
					return core.MarshalArg(names)
				}), nil
			}); err != nil {
				return err
			}

			if err := rt.RegisterFunc("__fs_stat", func(path string) (int, error) {
				return env.Bridge.Submit(func() (string, error) {
					info, err := os.Stat(path)
					if err != nil {
						return "", err
					}
					return core.MarshalArg(map[string]any{
						"size":     info.Size(),
						"isFile":   !info.IsDir(),
						"isDir":    info.IsDir(),
						"modified": info.ModTime().UnixMilli(),
						"mode":     uint32(info.Mode().Perm()),
					})
				}), nil
			}); err != nil {
				return err
			}

			return rt.Eval(fsKernelJS)
		},
	}
}

// fsKernelJS turns each pending id into a promise via the bridge's
// globalThis.__dune_newPromise. readFile resolves with base64 text by
// default and with the file contents as a string when encoding is "utf8";
// the kernel itself decodes nothing.
const fsKernelJS = `(function() {
	function readFile(path, options) {
		const encoding = (typeof options === "string" ? options : (options && options.encoding)) || "base64";
		const id = __fs_readFile(path, encoding);
		return globalThis.__dune_newPromise(id);
	}
	function writeFile(path, data) {
		const isBase64 = typeof data !== "string";
		const payload = typeof data === "string" ? data : __dune_bytesToBase64(data);
		const id = __fs_writeFile(path, JSON.stringify(payload), isBase64);
		return globalThis.__dune_newPromise(id);
	}
	function remove(path, options) {
		const id = __fs_remove(path, !!(options && options.recursive));
		return globalThis.__dune_newPromise(id);
	}
	function mkdir(path, options) {
		const id = __fs_mkdir(path, !!(options && options.recursive));
		return globalThis.__dune_newPromise(id);
	}
	function readdir(path) {
		const id = __fs_readdir(path);
		return globalThis.__dune_newPromise(id);
	}
	function stat(path) {
		const id = __fs_stat(path);
		return globalThis.__dune_newPromise(id);
	}

	globalThis.__dune_bindings.fs = {
		readFile: readFile,
		writeFile: writeFile,
		remove: remove,
		mkdir: mkdir,
		readdir: readdir,
		stat: stat,
	};
})()`
