package utils

func init() {
	HookDisposeLogger()
}
