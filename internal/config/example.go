package config

// Example is the file written by "interleave init".
const Example = `# interleave build configuration.
# Values of the form ${VAR} are expanded from the environment, .env and .env.local.

# Output directory.
path: dist
# Input paths are relative to basedir.
basedir: src

targets:
  - main.js

# Join all inputs into one file named after the first input (or "output").
concat: false
# output: bundle.js

# Packaging: a list of amd, cjs, umd, global or "all" (written to path/pkg/<format>),
# or a single format written straight into path with "wrap".
# package: [amd, cjs]
# wrap: umd

# Postprocessors run on written files: lint, minify, markdown, fingerprint, publish.
after: minify
lint: false

# Flags enable conditional includes ("//=[debug] lib/debug").
flags: []

# Aliases rewrite "name!rest" include targets, applied in order.
aliases:
  vendor: lib/vendor/

# Values merged with package.json and git metadata.
data: {}

# Treat other extensions as a known filetype.
conversions:
  mjs: js

watch_debounce: 100ms
# every: 5m

metrics:
  listen: ""

events:
  sqlite: ""
  nats:
    url: ""
    subject: interleave.cycles

publish:
  endpoint: ${INTERLEAVE_PUBLISH_ENDPOINT}
  bucket: ${INTERLEAVE_PUBLISH_BUCKET}
  access_key: ${INTERLEAVE_PUBLISH_ACCESS_KEY}
  secret_key: ${INTERLEAVE_PUBLISH_SECRET_KEY}
  use_ssl: true
`
