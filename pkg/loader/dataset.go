package loader

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/common"
	"github.com/invopop/jsonschema"
	"github.com/kaptinlin/jsonrepair"
)

// DatasetFile is the on-disk and upload format of a dataset. A bare JSON
// array of strings is accepted as well and treated as the generations.
type DatasetFile struct {
	ID          string   `json:"id,omitempty" jsonschema:"description=Optional stable identifier"`
	Name        string   `json:"name,omitempty" jsonschema:"description=Human readable name"`
	Prompt      string   `json:"prompt,omitempty" jsonschema:"description=Prompt the generations were sampled for"`
	Model       string   `json:"model,omitempty" jsonschema:"description=Model that produced the generations"`
	Generations []string `json:"generations" jsonschema:"required,description=Sampled generations in sampling order"`
}

// DatasetSchema returns the JSON schema of DatasetFile.
func DatasetSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(&DatasetFile{})
}

// DecodeDataset parses a dataset file. Slightly malformed JSON (trailing
// commas, single quotes, unquoted keys) is repaired before giving up.
//
// Example:
//
//	ds, err := loader.DecodeDataset([]byte(`{"prompt": "Name a colour", "generations": ["Red", "Blue",]}`))
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(len(ds.Generations)) // 2
func DecodeDataset(data []byte) (common.Dataset, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return common.Dataset{}, wrapInvalid("empty file")
	}

	file, err := decodeFile(data)
	if err != nil {
		repaired, rerr := jsonrepair.JSONRepair(string(data))
		if rerr != nil {
			return common.Dataset{}, wrapInvalid("%v", err)
		}
		file, err = decodeFile([]byte(repaired))
		if err != nil {
			return common.Dataset{}, wrapInvalid("%v", err)
		}
	}

	if file.Generations == nil {
		return common.Dataset{}, wrapInvalid("missing generations")
	}

	return common.Dataset{
		ID:          strings.TrimSpace(file.ID),
		Name:        strings.TrimSpace(file.Name),
		Prompt:      file.Prompt,
		Model:       strings.TrimSpace(file.Model),
		Generations: common.Corpus(file.Generations),
	}, nil
}

func decodeFile(data []byte) (DatasetFile, error) {
	if data[0] == '[' {
		var generations []string
		if err := json.Unmarshal(data, &generations); err != nil {
			return DatasetFile{}, err
		}
		return DatasetFile{Generations: generations}, nil
	}

	var file DatasetFile
	if err := json.Unmarshal(data, &file); err != nil {
		return DatasetFile{}, err
	}
	return file, nil
}
