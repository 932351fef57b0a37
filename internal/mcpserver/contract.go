package mcpserver

// DocumentFormatContract describes the stored document format and the edit
// operations that LLM consumers should use when changing documents.
const DocumentFormatContract = `# Schemakit Document Format Contract

Schemakit stores three kinds of YAML documents. Every change goes through the
tools of this server; never hand-edit a locked document.

## Kinds and file names

| kind           | file name                          | example                    |
|----------------|------------------------------------|----------------------------|
| ` + "`dictionaries`" + ` | ` + "`<name>.<major>.<minor>.<patch>.<enumerators>.yaml`" + ` | ` + "`customer.1.0.2.3.yaml`" + ` |
| ` + "`types`" + `        | ` + "`<name>.<major>.<minor>.<patch>.<enumerators>.yaml`" + ` | ` + "`word.0.1.0.0.yaml`" + `     |
| ` + "`enumerators`" + `  | ` + "`enumerations.<N>.yaml`" + `            | ` + "`enumerations.4.yaml`" + `   |

The version is read from the file name only. All versions of one name form a
family; the newest is the numerically greatest version.

## Dictionary and type documents

` + "```" + `yaml
file_name: customer.1.0.2.3.yaml
_locked: false
root:
  description: ""
  type: object
  properties:
    name:
      description: Full name
      type: custom
      required: true
      custom_type: word
    address:
      description: ""
      type: ref
      ref: address
    status:
      description: ""
      type: enum
      enums: customer_status
    tags:
      description: ""
      type: array
      items:
        description: Array item
        type: custom
        custom_type: word
  additional_properties: false
` + "```" + `

## Property types

| type          | payload fields                       | allowed in                        |
|---------------|--------------------------------------|-----------------------------------|
| ` + "`void`" + `        | none                                 | properties, items, type roots     |
| ` + "`object`" + `      | ` + "`properties`, `additional_properties`" + ` | everywhere                 |
| ` + "`array`" + `       | ` + "`items`" + `                              | everywhere                        |
| ` + "`one_of`" + `      | ` + "`properties`" + ` (the alternatives)      | everywhere                        |
| ` + "`ref`" + `         | ` + "`ref`" + ` (dictionary or type name)      | properties, items                 |
| ` + "`constant`" + `    | ` + "`value`" + `                              | properties                        |
| ` + "`enum`" + `        | ` + "`enums`" + ` (enumeration name)           | properties, items                 |
| ` + "`enum_array`" + `  | ` + "`enums`" + `                              | properties                        |
| ` + "`simple`" + `      | ` + "`schema`" + ` (JSON-Schema fragment)      | type documents only               |
| ` + "`complex`" + `     | ` + "`json_type`, `bson_type`" + `             | type documents only               |
| ` + "`custom`" + `      | ` + "`custom_type`" + ` (type name)            | properties, items                 |

Dictionary roots must be ` + "`object`, `array` or `one_of`" + `. Use the
variants endpoint or the edit tool to discover legal types instead of guessing.

## Enumerator documents

` + "```" + `yaml
file_name: enumerations.4.yaml
_locked: false
enumerations:
  customer_status:
    active: Active
    closed: Closed
` + "```" + `

## Editing

Use ` + "`edit_document`" + ` with a batch of ops. A batch is atomic: if any op fails
nothing is saved. Paths are dotted property keys from the root; ` + "`[]`" + `
steps into an array's items node (e.g. ` + "`tags.[]`" + `). ` + "`\"\"`" + ` is the root.

| op                              | fields                        |
|---------------------------------|-------------------------------|
| ` + "`add_child`" + `                     | ` + "`path`" + ` (parent)               |
| ` + "`delete_child`" + `                  | ` + "`path`, `key`" + `                 |
| ` + "`reorder`" + `                       | ` + "`path`, `from`, `to`" + `          |
| ` + "`rename`" + `                        | ` + "`path`, `key`, `new_key`" + `      |
| ` + "`change_variant`" + `                | ` + "`path`, `type`" + `                |
| ` + "`toggle_required`" + `               | ` + "`path`" + `                        |
| ` + "`toggle_additional_properties`" + `  | ` + "`path`" + `                        |
| ` + "`set_description`" + `               | ` + "`path`, `value`" + `               |
| ` + "`set_ref`" + `                       | ` + "`path`, `value`" + `               |
| ` + "`set_value`" + `                     | ` + "`path`, `value`" + `               |
| ` + "`set_enums`" + `                     | ` + "`path`, `value`" + `               |
| ` + "`set_schema`" + `                    | ` + "`path`, `value`" + ` (object)      |
| ` + "`set_json_type`" + `                 | ` + "`path`, `value`" + ` (object)      |
| ` + "`set_bson_type`" + `                 | ` + "`path`, `value`" + ` (object)      |
| ` + "`set_custom_type`" + `               | ` + "`path`, `value`" + `               |

New children are named ` + "`property_<n>`" + ` and start as ` + "`void`" + `.

## Versioning rules

1. Locked documents are read-only; ` + "`create_new_version`" + ` locks the newest
   version and stores an unlocked copy under the next version.
2. The bump increments the highest selected of major, minor and patch and
   resets the lower ones; the enumerators component moves only when selected.
3. Only the newest version of a family can be unlocked.
4. File names and keys MUST be in English (Latin characters). Descriptions
   may use any language.
`
