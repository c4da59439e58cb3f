package ports

// BundleCodec reads and writes one locale's flat key->value bundle file.
// Keys starting with the metadata prefix are not translatable content;
// Decode reports them separately and Encode writes them back untouched.
type BundleCodec interface {
	Decode(data []byte) (values map[string]string, metadata map[string]string, err error)
	Encode(values map[string]string, metadata map[string]string) ([]byte, error)
}
