/*
Package config manages configuration parsing and validation for copyfx.

	            +-------------+
	            |   Config    |
	            | (Settings)  |
	            +------+------+
	                   |
	    +--------------+--------------+
	    |              |              |
	+---+----+    +----+----+    +----+----+
	|  YAML  |    |   HCL   |    |  JSON   |
	| Parser |    | Parser  |    | Parser  |
	+--------+    +---------+    +---------+

🎯 Purpose:
- Manages configuration loading and parsing
- Validates configuration values
- Provides type-safe config access
- Supports multiple config formats

🔄 Flow:
1. Reads configuration from file
2. Parses format-specific syntax
3. Validates configuration values
4. Provides validated config to other packages

⚡ Key Responsibilities:
- Configuration parsing
- Schema validation
- Default value management
- Type safety
- Format abstraction

🤝 Interfaces:
- Parser: Format-specific parsing
- Config: Type-safe config access

🔍 Example:

	cfg, err := config.Load(ctx, "copyfx.yaml")
	if err != nil {
		return err
	}

	if cfg.UseNative() {
		// probe the OS copy primitive
	}
*/
package config
