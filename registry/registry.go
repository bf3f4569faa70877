package registry

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	protoparser "github.com/yoheimuta/go-protoparser/v4"
	protoparserparser "github.com/yoheimuta/go-protoparser/v4/parser"

	"github.com/anirudhraja/tagwire/schema"
)

// Registry allows us to store the schema of tagwire structs. We look this up
// when we need to bind parsed members to names or to marshal a message.
type Registry struct {
	// ProtoDirectories are searched, in order, when resolving imports.
	ProtoDirectories []string

	repo      *schema.Repo
	messages  map[string]*schema.Message  // fully qualified name -> message
	abstracts map[string]*schema.Abstract // fully qualified name -> abstract
	enums     map[string]*schema.Enum     // fully qualified name -> enum

	parsedProtoBody map[string]*protoparserparser.Proto // file path -> parsed body
	protoEntities   map[string]*protoFileEntity         // file path -> import graph node
}

type protoFileEntity struct {
	imports []string
}

// NewRegistry creates an empty registry that resolves imports against the
// given directories.
func NewRegistry(protoDirectories ...string) *Registry {
	return &Registry{
		ProtoDirectories: protoDirectories,
		repo:             &schema.Repo{Files: make(map[string]*schema.File)},
		parsedProtoBody:  make(map[string]*protoparserparser.Proto),
		protoEntities:    make(map[string]*protoFileEntity),
	}
}

// LoadRepo registers already-built definitions. Type references inside the
// repo may be short names; they are resolved like .proto references.
func (r *Registry) LoadRepo(repo *schema.Repo) error {
	if repo == nil {
		return fmt.Errorf("repo is nil")
	}
	for name := range repo.Files {
		if _, exists := r.repo.Files[name]; exists {
			return fmt.Errorf("file %s already loaded", name)
		}
	}
	return r.addFiles(repo.Files)
}

// LoadSchema Given a path it will recursively scan all *.proto files inside it
// (or load the single file), follow their imports and register every definition.
func (r *Registry) LoadSchema(protoPath string) error {
	info, err := os.Stat(protoPath)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}

	var roots []string
	if !info.IsDir() {
		if !strings.HasSuffix(protoPath, ".proto") {
			return fmt.Errorf("file %s is not a .proto file", protoPath)
		}
		roots = append(roots, protoPath)
	} else {
		err = filepath.WalkDir(protoPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			// Skip directories and non-proto files
			if d.IsDir() || !strings.HasSuffix(path, ".proto") {
				return nil
			}
			roots = append(roots, path)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to walk directory: %w", err)
		}
	}

	added := make(map[string]*schema.File)
	for _, root := range roots {
		files, err := r.getAllProtoInfo(root)
		if err != nil {
			return fmt.Errorf("failed to load proto file %s: %w", root, err)
		}
		for _, path := range files {
			if _, loaded := r.repo.Files[path]; loaded {
				continue
			}
			if _, loaded := added[path]; loaded {
				continue
			}
			file, err := convertProto(path, r.parsedProtoBody[path])
			if err != nil {
				return fmt.Errorf("failed to load proto file %s: %w", path, err)
			}
			file.Imports = r.protoEntities[path].imports
			added[path] = file
		}
	}

	if err := r.addFiles(added); err != nil {
		return fmt.Errorf("failed to build symbol table: %w", err)
	}
	return nil
}

// LoadSchemaFromReader parses a single .proto document. Its imports are not
// followed; the types it references must already be loaded.
func (r *Registry) LoadSchemaFromReader(name string, rd io.Reader) error {
	if _, exists := r.repo.Files[name]; exists {
		return fmt.Errorf("file %s already loaded", name)
	}
	content, err := io.ReadAll(rd)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	parsed, err := protoparser.Parse(bytes.NewBuffer(content))
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	file, err := convertProto(name, parsed)
	if err != nil {
		return fmt.Errorf("failed to load proto file %s: %w", name, err)
	}
	return r.addFiles(map[string]*schema.File{name: file})
}

// addFiles registers files and rebuilds the symbol table. If the files do not
// resolve they are removed again, leaving the registry as it was.
func (r *Registry) addFiles(files map[string]*schema.File) error {
	for name, file := range files {
		r.repo.Files[name] = file
	}
	err := r.buildSymbolTable()
	if err == nil {
		return nil
	}
	for name := range files {
		delete(r.repo.Files, name)
	}
	if rerr := r.buildSymbolTable(); rerr != nil {
		return errors.Join(err, rerr)
	}
	return err
}

// buildSymbolTable rebuilds the symbol table from the loaded repository
func (r *Registry) buildSymbolTable() error {
	r.messages = make(map[string]*schema.Message)
	r.abstracts = make(map[string]*schema.Abstract)
	r.enums = make(map[string]*schema.Enum)

	// Pass 1: Register all names. Files are visited in path order so that
	// duplicate definitions are reported deterministically.
	paths := make([]string, 0, len(r.repo.Files))
	for path := range r.repo.Files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := r.registerNames(r.repo.Files[path]); err != nil {
			return err
		}
	}

	// Pass 2: Resolve every type reference to a fully qualified name
	allResolvedEntities := make(map[string]struct{}, len(r.messages)+len(r.abstracts)+len(r.enums))
	for name := range r.messages {
		allResolvedEntities[name] = struct{}{}
	}
	for name := range r.abstracts {
		allResolvedEntities[name] = struct{}{}
	}
	for name := range r.enums {
		allResolvedEntities[name] = struct{}{}
	}
	for _, path := range paths {
		if err := r.resolveFile(r.repo.Files[path], allResolvedEntities); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

// registerNames registers all message, abstract and enum names
func (r *Registry) registerNames(file *schema.File) error {
	pkg := file.Package
	for _, msg := range file.Messages {
		if err := r.registerMessage(r.getFullName(pkg, msg.Name), msg); err != nil {
			return err
		}
	}
	for _, abstract := range file.Abstracts {
		if err := r.register(r.getFullName(pkg, abstract.Name), abstract); err != nil {
			return err
		}
	}
	for _, enum := range file.Enums {
		if err := r.register(r.getFullName(pkg, enum.Name), enum); err != nil {
			return err
		}
	}
	return nil
}

// registerMessage registers msg and, recursively, its nested definitions
func (r *Registry) registerMessage(fullName string, msg *schema.Message) error {
	if err := r.register(fullName, msg); err != nil {
		return err
	}
	for _, nested := range msg.NestedTypes {
		if err := r.registerMessage(fullName+"."+nested.Name, nested); err != nil {
			return err
		}
	}
	for _, nested := range msg.NestedAbstracts {
		if err := r.register(fullName+"."+nested.Name, nested); err != nil {
			return err
		}
	}
	for _, nested := range msg.NestedEnums {
		if err := r.register(fullName+"."+nested.Name, nested); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) register(fullName string, def interface{}) error {
	_, isMessage := r.messages[fullName]
	_, isAbstract := r.abstracts[fullName]
	_, isEnum := r.enums[fullName]
	if isMessage || isAbstract || isEnum {
		return fmt.Errorf("duplicate definition: %s", fullName)
	}
	switch d := def.(type) {
	case *schema.Message:
		r.messages[fullName] = d
	case *schema.Abstract:
		r.abstracts[fullName] = d
	case *schema.Enum:
		r.enums[fullName] = d
	default:
		return fmt.Errorf("unsupported definition %T", def)
	}
	return nil
}

func (r *Registry) resolveFile(file *schema.File, allResolvedEntities map[string]struct{}) error {
	for _, msg := range file.Messages {
		if err := r.resolveMessage(r.getFullName(file.Package, msg.Name), msg, allResolvedEntities); err != nil {
			return err
		}
	}
	for _, abstract := range file.Abstracts {
		if err := r.resolveAbstract(r.getFullName(file.Package, abstract.Name), abstract, allResolvedEntities); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) resolveMessage(fullName string, msg *schema.Message, allResolvedEntities map[string]struct{}) error {
	seen := make(map[int32]string, len(msg.Fields))
	for _, field := range msg.Fields {
		if field.TagID < 0 {
			return fmt.Errorf("%s.%s: negative tag id %d", fullName, field.Name, field.TagID)
		}
		if other, dup := seen[field.TagID]; dup {
			return fmt.Errorf("%s: tag id %d used by both %s and %s", fullName, field.TagID, other, field.Name)
		}
		seen[field.TagID] = field.Name

		if err := r.resolveType(&field.Type, fullName, allResolvedEntities); err != nil {
			return fmt.Errorf("%s.%s: %w", fullName, field.Name, err)
		}
	}
	for _, nested := range msg.NestedTypes {
		if err := r.resolveMessage(fullName+"."+nested.Name, nested, allResolvedEntities); err != nil {
			return err
		}
	}
	for _, nested := range msg.NestedAbstracts {
		if err := r.resolveAbstract(fullName+"."+nested.Name, nested, allResolvedEntities); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) resolveAbstract(fullName string, abstract *schema.Abstract, allResolvedEntities map[string]struct{}) error {
	seen := make(map[int32]struct{}, len(abstract.Variants))
	for _, variant := range abstract.Variants {
		if variant.Code <= 0 {
			return fmt.Errorf("%s.%s: abstract type codes must be positive, got %d", fullName, variant.Name, variant.Code)
		}
		if _, dup := seen[variant.Code]; dup {
			return fmt.Errorf("%s: duplicate type code %d", fullName, variant.Code)
		}
		seen[variant.Code] = struct{}{}

		resolved, err := getReferencedType(variant.MessageType, fullName, allResolvedEntities)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", fullName, variant.Name, err)
		}
		if _, ok := r.messages[resolved]; !ok {
			return fmt.Errorf("%s.%s: variant %s is not a message", fullName, variant.Name, resolved)
		}
		variant.MessageType = resolved
	}
	return nil
}

// resolveType replaces the type reference in ft with its fully qualified name
// and fixes its kind according to what the name refers to.
func (r *Registry) resolveType(ft *schema.FieldType, scope string, allResolvedEntities map[string]struct{}) error {
	switch ft.Kind {
	case schema.KindScalar:
		return nil
	case schema.KindList:
		if ft.Element == nil {
			return fmt.Errorf("list without element type")
		}
		return r.resolveType(ft.Element, scope, allResolvedEntities)
	case schema.KindMap:
		if ft.Key == nil || ft.Value == nil {
			return fmt.Errorf("map without key or value type")
		}
		if err := r.resolveType(ft.Key, scope, allResolvedEntities); err != nil {
			return fmt.Errorf("map key: %w", err)
		}
		if ft.Key.Kind != schema.KindScalar && ft.Key.Kind != schema.KindEnum {
			return fmt.Errorf("map key must be a scalar, got %s", ft.Key.Kind)
		}
		return r.resolveType(ft.Value, scope, allResolvedEntities)
	case schema.KindMessage, schema.KindAbstract, schema.KindEnum:
	default:
		return fmt.Errorf("unknown type kind %q", ft.Kind)
	}

	name := ft.MessageType
	if ft.Kind == schema.KindEnum {
		name = ft.EnumType
	}
	resolved, err := getReferencedType(name, scope, allResolvedEntities)
	if err != nil {
		return err
	}

	switch {
	case r.messages[resolved] != nil:
		ft.Kind = schema.KindMessage
		ft.MessageType = resolved
	case r.abstracts[resolved] != nil:
		// an abstract value carries its own null (type code 0)
		ft.Kind = schema.KindAbstract
		ft.MessageType = resolved
		ft.Nullable = false
	case r.enums[resolved] != nil:
		ft.Kind = schema.KindEnum
		ft.EnumType = resolved
		ft.MessageType = ""
		ft.Scalar = enumWireType
	}
	return nil
}

func (r *Registry) getFullName(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

// lookup finds name by exact match, then by unique suffix match.
func lookup[T any](defs map[string]T, name string) (string, T, bool) {
	var zero T
	if def, exists := defs[name]; exists {
		return name, def, true
	}

	// Try without package prefix
	var matches []string
	for fullName := range defs {
		if strings.HasSuffix(fullName, "."+name) {
			matches = append(matches, fullName)
		}
	}
	if len(matches) != 1 {
		return "", zero, false
	}
	return matches[0], defs[matches[0]], true
}

// GetMessage retrieves a message definition by name
func (r *Registry) GetMessage(name string) (*schema.Message, error) {
	if _, msg, ok := lookup(r.messages, name); ok {
		return msg, nil
	}
	return nil, fmt.Errorf("message not found: %s", name)
}

// GetAbstract retrieves an abstract type definition by name
func (r *Registry) GetAbstract(name string) (*schema.Abstract, error) {
	if _, abstract, ok := lookup(r.abstracts, name); ok {
		return abstract, nil
	}
	return nil, fmt.Errorf("abstract type not found: %s", name)
}

// GetEnum retrieves an enum definition by name
func (r *Registry) GetEnum(name string) (*schema.Enum, error) {
	if _, enum, ok := lookup(r.enums, name); ok {
		return enum, nil
	}
	return nil, fmt.Errorf("enum not found: %s", name)
}

// FullName returns the fully qualified name of a message or abstract type.
func (r *Registry) FullName(name string) (string, bool) {
	if full, _, ok := lookup(r.messages, name); ok {
		return full, true
	}
	if full, _, ok := lookup(r.abstracts, name); ok {
		return full, true
	}
	return "", false
}

// ListMessages returns all registered message names, sorted
func (r *Registry) ListMessages() []string {
	return sortedKeys(r.messages)
}

// ListAbstracts returns all registered abstract type names, sorted
func (r *Registry) ListAbstracts() []string {
	return sortedKeys(r.abstracts)
}

// ListEnums returns all registered enum names, sorted
func (r *Registry) ListEnums() []string {
	return sortedKeys(r.enums)
}

func sortedKeys[T any](m map[string]T) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
