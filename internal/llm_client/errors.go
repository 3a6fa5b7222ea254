package llm_client

import "errors"

var ErrNotInitialized = errors.New("llm provider not initialized")
