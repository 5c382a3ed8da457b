package stores

/*
Corpus is the backing store for the knowledge base. One addressable text
unit per name; the loaded corpus is the concatenation of every stored unit
in stable name order. Callers hand in names that are already safe storage
keys, the store never rewrites them.

Put must fully persist before returning so a reload issued right after
observes the new document.
*/
type Corpus interface {
	Put(name, content string) error
	LoadAll() (string, error)
}
