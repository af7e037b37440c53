package extract

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/nao1215/perfumeharvest/internal/normalize"
)

// jsonField returns the member key of obj.
//
// gjson paths treat a leading '@' as a modifier, so JSON-LD keywords such as
// "@type" and "@graph" are looked up by iterating the members instead.
func jsonField(obj gjson.Result, key string) gjson.Result {
	var found gjson.Result
	obj.ForEach(func(k, v gjson.Result) bool {
		if k.String() == key {
			found = v
			return false
		}
		return true
	})
	return found
}

// objects returns the object elements of a JSON array.
func objects(arr gjson.Result) []gjson.Result {
	var out []gjson.Result
	for _, item := range arr.Array() {
		if item.IsObject() {
			out = append(out, item)
		}
	}
	return out
}

// flattenJSONLD returns the entries of one JSON-LD document. A top-level
// list and an "@graph" list are both unwrapped one level.
func flattenJSONLD(doc gjson.Result) []gjson.Result {
	switch {
	case doc.IsObject():
		if graph := jsonField(doc, "@graph"); graph.IsArray() {
			return objects(graph)
		}
		return []gjson.Result{doc}
	case doc.IsArray():
		return objects(doc)
	default:
		return nil
	}
}

// isProductEntry reports whether the @type of entry mentions "product".
func isProductEntry(entry gjson.Result) bool {
	typ := jsonField(entry, "@type")
	switch {
	case typ.Type == gjson.String:
		return strings.Contains(normalize.Fold(typ.Str), "product")
	case typ.IsArray():
		for _, item := range typ.Array() {
			if item.Type == gjson.String && strings.Contains(normalize.Fold(item.Str), "product") {
				return true
			}
		}
	}
	return false
}

// productEntries parses JSON-LD script bodies and returns the entries that
// describe products. Bodies that are not valid JSON are ignored.
func productEntries(bodies []string) []gjson.Result {
	var entries []gjson.Result
	for _, body := range bodies {
		body = strings.TrimSpace(body)
		if body == "" || !gjson.Valid(body) {
			continue
		}
		for _, entry := range flattenJSONLD(gjson.Parse(body)) {
			if isProductEntry(entry) {
				entries = append(entries, entry)
			}
		}
	}
	return entries
}

// entryDescription returns the non-blank description of a product entry.
func entryDescription(entry gjson.Result) string {
	desc := jsonField(entry, "description")
	if desc.Type != gjson.String {
		return ""
	}
	return strings.TrimSpace(desc.Str)
}

// entryImages returns the image references of a product entry. The image
// field may be a string, an ImageObject with a url, or a list of either.
func entryImages(entry gjson.Result) []string {
	var refs []string

	var collect func(v gjson.Result)
	collect = func(v gjson.Result) {
		switch {
		case v.Type == gjson.String:
			refs = append(refs, v.Str)
		case v.IsObject():
			if u := jsonField(v, "url"); u.Type == gjson.String {
				refs = append(refs, u.Str)
			}
		case v.IsArray():
			for _, item := range v.Array() {
				if !item.IsArray() {
					collect(item)
				}
			}
		}
	}
	collect(jsonField(entry, "image"))

	return refs
}
